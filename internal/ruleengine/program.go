// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package ruleengine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tomtom215/rulemine/internal/mining"
)

// DefaultProgramCacheSize bounds the number of compiled rule conditions kept.
const DefaultProgramCacheSize = 4096

// Env is the evaluation environment of a rule condition.
type Env struct {
	// Basket holds the items present in the input.
	Basket map[string]bool `expr:"basket"`

	// Recommended holds the items recommended so far.
	Recommended map[string]bool `expr:"recommended"`
}

// Condition renders the expr source for a rule: every antecedent item is in
// the basket and some consequent item is neither in the basket nor already
// recommended.
//
//nolint:gocritic // hugeParam: rules are passed by value throughout
func Condition(rule mining.AssociationRule) string {
	return fmt.Sprintf("all(%s, {# in basket}) && any(%s, {!(# in basket) && !(# in recommended)})",
		listLiteral(rule.Antecedent), listLiteral(rule.Consequent))
}

func listLiteral(items mining.ItemSet) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = strconv.Quote(item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// ProgramCache compiles rule conditions and keeps the most recently used
// programs. It is safe for concurrent use and may be shared between engines.
type ProgramCache struct {
	programs *lru.Cache[string, *vm.Program]
}

// NewProgramCache creates a cache holding up to size programs.
func NewProgramCache(size int) (*ProgramCache, error) {
	if size <= 0 {
		size = DefaultProgramCacheSize
	}
	programs, err := lru.New[string, *vm.Program](size)
	if err != nil {
		return nil, fmt.Errorf("create program cache: %w", err)
	}
	return &ProgramCache{programs: programs}, nil
}

// Compile returns the compiled program for source, compiling on a miss.
func (c *ProgramCache) Compile(source string) (*vm.Program, error) {
	if program, ok := c.programs.Get(source); ok {
		return program, nil
	}

	program, err := expr.Compile(source, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("failed to compile condition '%s': %w", source, err)
	}
	c.programs.Add(source, program)
	return program, nil
}

// Len returns the number of cached programs.
func (c *ProgramCache) Len() int {
	return c.programs.Len()
}
