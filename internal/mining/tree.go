// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package mining

import (
	"cmp"
	"slices"
)

// rootIndex is the arena slot of a tree's empty root node.
const rootIndex = 0

// treeNode is one prefix-tree node. Nodes live in their tree's arena and
// refer to each other by index.
type treeNode struct {
	item     string
	count    int
	parent   int
	children map[string]int
}

// prefixTree is a frequency-ordered prefix tree. Each tree owns its nodes;
// conditional trees are built fresh and dropped when their recursion returns.
type prefixTree struct {
	nodes []treeNode
	// links lists, per item, the arena indexes of the nodes labeled with it.
	links map[string][]int
	// rank is the global frequency order shared by every tree of one run.
	rank map[string]int
}

func newPrefixTree(rank map[string]int) *prefixTree {
	return &prefixTree{
		nodes: []treeNode{{parent: -1, children: make(map[string]int)}},
		links: make(map[string][]int),
		rank:  rank,
	}
}

// insert adds path (already in rank order) with the given weight, sharing
// existing prefix nodes.
func (t *prefixTree) insert(path []string, weight int) {
	current := rootIndex
	for _, item := range path {
		child, ok := t.nodes[current].children[item]
		if !ok {
			child = len(t.nodes)
			t.nodes = append(t.nodes, treeNode{
				item:     item,
				parent:   current,
				children: make(map[string]int),
			})
			t.nodes[current].children[item] = child
			t.links[item] = append(t.links[item], child)
		}
		t.nodes[child].count += weight
		current = child
	}
}

// itemCount sums the counts of every node labeled item.
func (t *prefixTree) itemCount(item string) int {
	total := 0
	for _, idx := range t.links[item] {
		total += t.nodes[idx].count
	}
	return total
}

// weightedPath is one entry of a conditional pattern base.
type weightedPath struct {
	items  []string
	weight int
}

// conditionalBase returns, for every node labeled item, the path from the
// root down to that node's parent weighted by the node's count.
func (t *prefixTree) conditionalBase(item string) []weightedPath {
	links := t.links[item]
	base := make([]weightedPath, 0, len(links))
	for _, idx := range links {
		var path []string
		for p := t.nodes[idx].parent; p != rootIndex; p = t.nodes[p].parent {
			path = append(path, t.nodes[p].item)
		}
		if len(path) == 0 {
			continue
		}
		slices.Reverse(path)
		base = append(base, weightedPath{items: path, weight: t.nodes[idx].count})
	}
	return base
}

// frequentItems returns the items whose counts meet minCount, least frequent first.
func (t *prefixTree) frequentItems(minCount int) []string {
	items := make([]string, 0, len(t.links))
	for item := range t.links {
		if t.itemCount(item) >= minCount {
			items = append(items, item)
		}
	}
	slices.SortFunc(items, func(a, b string) int {
		return cmp.Compare(t.rank[b], t.rank[a])
	})
	return items
}

// treeMiner carries the state shared by one tree-engine run.
type treeMiner struct {
	minCount int
	n        int
	rank     map[string]int
	result   []FrequentItemset
}

// mineTree finds all frequent itemsets by prefix-tree growth.
func mineTree(store *TransactionStore, minSupport float64) []FrequentItemset {
	n := store.Count()
	if n == 0 {
		return nil
	}
	sets := store.itemSets()
	m := &treeMiner{minCount: minSupportCount(minSupport, n), n: n}

	// Global item frequency. Item sets are deduplicated, so an item counts
	// once per transaction.
	frequency := make(map[string]int)
	for _, set := range sets {
		for _, item := range set {
			frequency[item]++
		}
	}

	order := make([]string, 0, len(frequency))
	for item, count := range frequency {
		if count >= m.minCount {
			order = append(order, item)
		}
	}
	// Descending frequency, ties by ascending item id.
	slices.SortFunc(order, func(a, b string) int {
		if c := cmp.Compare(frequency[b], frequency[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	m.rank = make(map[string]int, len(order))
	for i, item := range order {
		m.rank[item] = i
	}

	tree := newPrefixTree(m.rank)
	path := make([]string, 0, len(order))
	for _, set := range sets {
		path = path[:0]
		for _, item := range set {
			if _, ok := m.rank[item]; ok {
				path = append(path, item)
			}
		}
		m.sortByRank(path)
		tree.insert(path, 1)
	}

	for _, item := range order {
		m.emit(ItemSet{item}, frequency[item])
	}

	// Least frequent first.
	for i := len(order) - 1; i >= 0; i-- {
		item := order[i]
		m.grow(tree.conditionalBase(item), ItemSet{item})
	}

	slices.SortFunc(m.result, func(a, b FrequentItemset) int { return a.Items.Compare(b.Items) })
	return m.result
}

// grow builds the conditional tree of base and emits every pattern formed by
// extending suffix with one of its frequent items, recursing on each.
func (m *treeMiner) grow(base []weightedPath, suffix ItemSet) {
	if len(base) == 0 {
		return
	}
	conditional := m.buildConditionalTree(base)
	for _, item := range conditional.frequentItems(m.minCount) {
		pattern := suffix.Union(ItemSet{item})
		m.emit(pattern, conditional.itemCount(item))
		m.grow(conditional.conditionalBase(item), pattern)
	}
}

// buildConditionalTree inserts each weighted path, dropping items that are
// infrequent within the base since no pattern through them can be frequent.
func (m *treeMiner) buildConditionalTree(base []weightedPath) *prefixTree {
	counts := make(map[string]int)
	for _, wp := range base {
		for _, item := range wp.items {
			counts[item] += wp.weight
		}
	}

	tree := newPrefixTree(m.rank)
	path := make([]string, 0)
	for _, wp := range base {
		path = path[:0]
		for _, item := range wp.items {
			if counts[item] >= m.minCount {
				path = append(path, item)
			}
		}
		if len(path) > 0 {
			tree.insert(path, wp.weight)
		}
	}
	return tree
}

func (m *treeMiner) emit(items ItemSet, count int) {
	m.result = append(m.result, FrequentItemset{
		Items:   items,
		Support: float64(count) / float64(m.n),
		Count:   count,
	})
}

func (m *treeMiner) sortByRank(path []string) {
	slices.SortFunc(path, func(a, b string) int {
		return cmp.Compare(m.rank[a], m.rank[b])
	})
}
