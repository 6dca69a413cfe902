// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package publish

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/rulemine/internal/mining"
	"github.com/tomtom215/rulemine/internal/repository"
)

const (
	// EventTypeRuleSetMined marks a rule set that was mined and saved.
	EventTypeRuleSetMined = "ruleset.mined"

	// TopRulesLimit caps the rules carried inline in an event.
	TopRulesLimit = 10

	// Metadata keys set on every message.
	metadataEventType = "event_type"
	metadataRuleSetID = "ruleset_id"
)

// RuleSetEvent summarizes a mined rule set for subscribers. Subscribers
// that need every rule fetch the set by RuleSetID.
type RuleSetEvent struct {
	EventID    string                   `json:"event_id"`
	Type       string                   `json:"type"`
	OccurredAt time.Time                `json:"occurred_at"`
	RuleSetID  string                   `json:"ruleset_id"`
	Source     string                   `json:"source,omitempty"`
	Config     mining.Config            `json:"config"`
	Stats      mining.MiningStats       `json:"stats"`
	RuleCount  int                      `json:"rule_count"`
	TopRules   []mining.AssociationRule `json:"top_rules"`
}

// NewRuleSetEvent builds the event for rs. Rules are assumed ranked, so the
// first TopRulesLimit are the best ones.
func NewRuleSetEvent(rs *repository.RuleSet, occurredAt time.Time) RuleSetEvent {
	top := rs.Rules
	if len(top) > TopRulesLimit {
		top = top[:TopRulesLimit]
	}
	return RuleSetEvent{
		EventID:    uuid.NewString(),
		Type:       EventTypeRuleSetMined,
		OccurredAt: occurredAt.UTC(),
		RuleSetID:  rs.ID,
		Source:     rs.Source,
		Config:     rs.Config,
		Stats:      rs.Stats,
		RuleCount:  len(rs.Rules),
		TopRules:   top,
	}
}

func encodeEvent(ev RuleSetEvent) ([]byte, error) { //nolint:gocritic // hugeParam
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return payload, nil
}

// DecodeRuleSetEvent decodes a message payload.
func DecodeRuleSetEvent(payload []byte) (RuleSetEvent, error) {
	var ev RuleSetEvent
	err := json.Unmarshal(payload, &ev)
	return ev, err
}
