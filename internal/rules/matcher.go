// internal/rules/matcher.go
package rules

import (
	"sort"

	"github.com/solatis/groundskeeper/internal/types"
)

/*
 * Territory matching.
 *
 * A Matcher is compiled once from a snapshot of territories (with their
 * rules) and then answers Match for any number of subjects without I/O.
 *
 * Candidate set:
 *   - territories that are active and not soft-deleted
 *   - their active rules; a territory with none can only be assigned manually
 *
 * Resolution: a territory matches when at least one of its active rules is
 * satisfied. All candidate rules are laid out in one list ordered by
 *   1. rule priority, descending
 *   2. territory depth in the snapshot's tree, descending (a child before
 *      its ancestor at the same priority)
 *   3. territory id, ascending (UUIDv7, so creation order)
 *   4. rule cost, ascending, then rule id ascending
 * and the first satisfied rule decides. The order is total, so identical
 * inputs always produce the same winner.
 */

// MatchResult describes the winning rule, if any.
type MatchResult struct {
	Matched    bool
	Territory  *types.Territory
	RuleID     types.RuleID
	FieldName  string
	FieldValue any
	Priority   int
}

type candidate struct {
	territory *types.Territory
	rule      *CompiledRule
	depth     int
}

// Matcher holds compiled candidates in evaluation order.
type Matcher struct {
	candidates  []candidate
	territories map[types.TerritoryID]*types.Territory
}

// NewMatcher compiles a territory snapshot. Territory structs are copied;
// rule slices are shared and must not be mutated while the matcher is in use.
// Every territory in the slice is a candidate; territories without an ID
// have no parent links and cannot be found with Territory.
func NewMatcher(territories []types.Territory) *Matcher {
	m := &Matcher{
		territories: make(map[types.TerritoryID]*types.Territory, len(territories)),
	}

	copies := make([]types.Territory, len(territories))
	copy(copies, territories)

	parents := make(map[types.TerritoryID]*types.TerritoryID, len(copies))
	for i := range copies {
		t := &copies[i]
		if t.ID == "" {
			continue
		}
		if _, dup := m.territories[t.ID]; !dup {
			m.territories[t.ID] = t
			parents[t.ID] = t.ParentID
		}
	}

	for i := range copies {
		t := &copies[i]
		if !t.IsActive() {
			continue
		}
		depth := 0
		if t.ID != "" {
			depth = territoryDepth(t.ID, parents)
		}
		for j := range t.Rules {
			rule := &t.Rules[j]
			// Rules carrying another territory's id are stale snapshot data.
			if !rule.IsActive || (rule.TerritoryID != "" && rule.TerritoryID != t.ID) {
				continue
			}
			m.candidates = append(m.candidates, candidate{
				territory: t,
				rule:      Compile(rule),
				depth:     depth,
			})
		}
	}

	sort.SliceStable(m.candidates, func(i, j int) bool {
		a, b := m.candidates[i], m.candidates[j]
		if a.rule.Priority != b.rule.Priority {
			return a.rule.Priority > b.rule.Priority
		}
		if a.depth != b.depth {
			return a.depth > b.depth
		}
		if a.territory.ID != b.territory.ID {
			return a.territory.ID < b.territory.ID
		}
		if a.rule.Cost != b.rule.Cost {
			return a.rule.Cost < b.rule.Cost
		}
		return a.rule.ID < b.rule.ID
	})

	return m
}

// Match returns the best territory for src, or Matched=false.
func (m *Matcher) Match(src FieldSource) MatchResult {
	for _, c := range m.candidates {
		matched, value := c.rule.evaluate(src)
		if !matched {
			continue
		}
		return MatchResult{
			Matched:    true,
			Territory:  c.territory,
			RuleID:     c.rule.ID,
			FieldName:  c.rule.FieldName,
			FieldValue: value,
			Priority:   c.rule.Priority,
		}
	}
	return MatchResult{}
}

// Territory looks up a territory from the snapshot.
func (m *Matcher) Territory(id types.TerritoryID) (*types.Territory, bool) {
	t, ok := m.territories[id]
	return t, ok
}

// Len returns the number of candidate rules.
func (m *Matcher) Len() int {
	return len(m.candidates)
}

// Match compiles territories and matches src in one call.
func Match(src FieldSource, territories []types.Territory) MatchResult {
	return NewMatcher(territories).Match(src)
}

// territoryDepth counts ancestors present in the snapshot.
// Stops at MaxTerritoryDepth or on a revisited node so corrupt data cannot loop.
func territoryDepth(id types.TerritoryID, parents map[types.TerritoryID]*types.TerritoryID) int {
	depth := 0
	seen := map[types.TerritoryID]bool{id: true}
	current := parents[id]
	for current != nil && depth < types.MaxTerritoryDepth {
		if seen[*current] {
			break
		}
		if _, ok := parents[*current]; !ok {
			break
		}
		seen[*current] = true
		depth++
		current = parents[*current]
	}
	return depth
}
