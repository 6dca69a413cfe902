// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

/*
Package supervisor runs the long-lived parts of `rulemine serve` under a
suture v4 supervision tree.

	rulemine (root)
	├── data-layer       store value-log GC
	├── messaging-layer  outbox retry and rule-set event listener (when NATS is configured)
	└── api-layer        HTTP server

Each layer restarts its own services with suture's failure decay and
backoff, so a broker outage only affects the messaging layer. Supervisor
events are logged through sutureslog onto the process zerolog logger via
logging.NewSlogLogger.

The suture.Service adapters live in the services subpackage.
*/
package supervisor
