// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

/*
Package services adapts rulemine components to suture.Service.

  - APIService precompiles the latest rule set, runs the API's
    *http.Server and drains it on shutdown.
  - PeriodicService runs a task on a ticker, used for store value-log GC
    and the publish outbox retry pass.
  - EventListenerService consumes rule-set events with publish.Listen.

Every service returns ctx.Err() once its context is canceled and
implements fmt.Stringer so supervisor logs name it.
*/
package services
