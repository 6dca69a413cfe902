// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package mining

import (
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Transaction is one basket of items observed together.
// Items keep their input order and may repeat; containment treats them as a set.
type Transaction struct {
	// ID identifies the transaction in the source system.
	ID string `json:"id"`

	// Timestamp is when the transaction happened.
	Timestamp time.Time `json:"timestamp"`

	// Items are the item identifiers in input order.
	Items []string `json:"items"`

	// UserID optionally identifies who produced the transaction.
	UserID string `json:"user_id,omitempty"`

	// Metadata carries opaque source attributes.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewTransaction creates a transaction with no user or metadata.
func NewTransaction(id string, items []string, timestamp time.Time) Transaction {
	return Transaction{
		ID:        id,
		Timestamp: timestamp,
		Items:     items,
	}
}

// WithUser returns a copy of the transaction attributed to userID.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (t Transaction) WithUser(userID string) Transaction {
	t.UserID = userID
	return t
}

// WithMetadata returns a copy of the transaction carrying metadata.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (t Transaction) WithMetadata(metadata map[string]any) Transaction {
	t.Metadata = maps.Clone(metadata)
	return t
}

// Contains reports whether the transaction holds item.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (t Transaction) Contains(item string) bool {
	return slices.Contains(t.Items, item)
}

// ContainsAll reports whether the transaction holds every item of set.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (t Transaction) ContainsAll(set ItemSet) bool {
	return set.IsSubsetOf(NewItemSet(t.Items...))
}

// clone returns a deep copy so callers cannot mutate stored transactions.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (t Transaction) clone() Transaction {
	t.Items = slices.Clone(t.Items)
	t.Metadata = maps.Clone(t.Metadata)
	return t
}

// ItemSet is a set of item identifiers in canonical form: sorted ascending
// with no duplicates. Build one with NewItemSet; the methods assume the
// canonical form.
type ItemSet []string

// NewItemSet returns the canonical item set holding items.
func NewItemSet(items ...string) ItemSet {
	set := slices.Clone(items)
	slices.Sort(set)
	return ItemSet(slices.Compact(set))
}

// Len returns the number of items.
func (s ItemSet) Len() int {
	return len(s)
}

// Key returns a string usable as a map key for the set. Each item is
// length-prefixed, so distinct sets never share a key whatever bytes the
// item ids contain.
func (s ItemSet) Key() string {
	var b strings.Builder
	for _, item := range s {
		writeKeyPart(&b, item)
	}
	return b.String()
}

// writeKeyPart appends part as "<len>:<part>".
func writeKeyPart(b *strings.Builder, part string) {
	b.WriteString(strconv.Itoa(len(part)))
	b.WriteByte(':')
	b.WriteString(part)
}

// Contains reports whether item is a member of the set.
func (s ItemSet) Contains(item string) bool {
	_, found := slices.BinarySearch(s, item)
	return found
}

// IsSubsetOf reports whether every item of s is in other.
func (s ItemSet) IsSubsetOf(other ItemSet) bool {
	if len(s) > len(other) {
		return false
	}
	j := 0
	for _, item := range s {
		for j < len(other) && other[j] < item {
			j++
		}
		if j == len(other) || other[j] != item {
			return false
		}
		j++
	}
	return true
}

// Union returns the canonical union of s and other.
func (s ItemSet) Union(other ItemSet) ItemSet {
	out := make(ItemSet, 0, len(s)+len(other))
	i, j := 0, 0
	for i < len(s) && j < len(other) {
		switch {
		case s[i] < other[j]:
			out = append(out, s[i])
			i++
		case s[i] > other[j]:
			out = append(out, other[j])
			j++
		default:
			out = append(out, s[i])
			i++
			j++
		}
	}
	out = append(out, s[i:]...)
	return append(out, other[j:]...)
}

// Minus returns the items of s that are not in other.
func (s ItemSet) Minus(other ItemSet) ItemSet {
	out := make(ItemSet, 0, len(s))
	for _, item := range s {
		if !other.Contains(item) {
			out = append(out, item)
		}
	}
	return out
}

// Equal reports whether both sets hold the same items.
func (s ItemSet) Equal(other ItemSet) bool {
	return slices.Equal(s, other)
}

// Compare orders sets by size, then lexicographically.
func (s ItemSet) Compare(other ItemSet) int {
	if len(s) != len(other) {
		return len(s) - len(other)
	}
	return slices.Compare(s, other)
}

// String renders the set as "{A, B}".
func (s ItemSet) String() string {
	return "{" + strings.Join(s, ", ") + "}"
}

// FrequentItemset is an itemset whose support meets the configured minimum.
type FrequentItemset struct {
	Items   ItemSet `json:"items"`
	Support float64 `json:"support"`
	Count   int     `json:"count"`
}

// PatternMetrics holds the statistics of an association rule.
type PatternMetrics struct {
	// Confidence is P(consequent | antecedent), in [0, 1].
	Confidence float64 `json:"confidence"`

	// Support is the fraction of transactions holding antecedent and consequent.
	Support float64 `json:"support"`

	// Lift is confidence relative to the consequent's base rate.
	Lift float64 `json:"lift"`

	// Conviction is (1 - P(consequent)) / (1 - confidence); +Inf for exact rules.
	Conviction float64 `json:"conviction"`

	// AvgTimeGap and TimeVariance are reserved for sequential mining and always nil.
	AvgTimeGap   *time.Duration `json:"avg_time_gap,omitempty"`
	TimeVariance *time.Duration `json:"time_variance,omitempty"`
}

// infinityText is the JSON rendering of an infinite conviction.
const infinityText = "+Inf"

type patternMetricsJSON struct {
	Confidence   float64        `json:"confidence"`
	Support      float64        `json:"support"`
	Lift         float64        `json:"lift"`
	Conviction   any            `json:"conviction"`
	AvgTimeGap   *time.Duration `json:"avg_time_gap,omitempty"`
	TimeVariance *time.Duration `json:"time_variance,omitempty"`
}

// MarshalJSON encodes an infinite conviction as the string "+Inf".
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (m PatternMetrics) MarshalJSON() ([]byte, error) {
	var conviction any = m.Conviction
	if math.IsInf(m.Conviction, 1) {
		conviction = infinityText
	}
	return json.Marshal(patternMetricsJSON{
		Confidence:   m.Confidence,
		Support:      m.Support,
		Lift:         m.Lift,
		Conviction:   conviction,
		AvgTimeGap:   m.AvgTimeGap,
		TimeVariance: m.TimeVariance,
	})
}

// UnmarshalJSON accepts a numeric conviction or the string "+Inf".
func (m *PatternMetrics) UnmarshalJSON(data []byte) error {
	var raw struct {
		Confidence   float64         `json:"confidence"`
		Support      float64         `json:"support"`
		Lift         float64         `json:"lift"`
		Conviction   json.RawMessage `json:"conviction"`
		AvgTimeGap   *time.Duration  `json:"avg_time_gap,omitempty"`
		TimeVariance *time.Duration  `json:"time_variance,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Confidence = raw.Confidence
	m.Support = raw.Support
	m.Lift = raw.Lift
	m.AvgTimeGap = raw.AvgTimeGap
	m.TimeVariance = raw.TimeVariance
	m.Conviction = 0

	if len(raw.Conviction) == 0 || string(raw.Conviction) == "null" {
		return nil
	}
	if string(raw.Conviction) == `"`+infinityText+`"` {
		m.Conviction = math.Inf(1)
		return nil
	}
	return json.Unmarshal(raw.Conviction, &m.Conviction)
}

// Quality score weights.
const (
	qualityConfidenceWeight = 0.5
	qualityLiftWeight       = 0.3
	qualitySupportWeight    = 0.2
)

// AssociationRule states that transactions holding Antecedent tend to hold Consequent.
// Antecedent and Consequent are disjoint and non-empty.
type AssociationRule struct {
	Antecedent ItemSet        `json:"antecedent"`
	Consequent ItemSet        `json:"consequent"`
	Metrics    PatternMetrics `json:"metrics"`
}

// QualityScore combines confidence, lift and support for ranking.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (r AssociationRule) QualityScore() float64 {
	return qualityConfidenceWeight*r.Metrics.Confidence +
		qualityLiftWeight*r.Metrics.Lift +
		qualitySupportWeight*r.Metrics.Support
}

// String renders the rule as "A, B => C".
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (r AssociationRule) String() string {
	return strings.Join(r.Antecedent, ", ") + " => " + strings.Join(r.Consequent, ", ")
}

// MiningStats describes the most recent successful mining run.
type MiningStats struct {
	FrequentItemsetCount  int           `json:"frequent_itemset_count"`
	RuleCount             int           `json:"rule_count"`
	TransactionsProcessed int           `json:"transactions_processed"`
	Algorithm             Algorithm     `json:"algorithm"`
	Duration              time.Duration `json:"duration_ns"`
	CompletedAt           time.Time     `json:"completed_at"`
}
