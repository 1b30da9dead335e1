// Package pool builds the candidate pool for one reconciliation run:
// eligible Sources and Targets indexed by normalized counterparty key.
//
// A pool is built fresh from caller snapshots at the start of a run and
// discarded at the end. Candidates carry a "reserved" flag that the matcher
// sets as it assigns them; the input records themselves are never modified.
package pool

import (
	"sort"

	"github.com/eshaffer321/settlement-reconciler/internal/domain/records"
)

// Side tells whether a record is a Source or a Target.
type Side string

const (
	SideSource Side = "source"
	SideTarget Side = "target"
)

// Rejected is a record that could not be placed in any group.
type Rejected struct {
	ID   string
	Side Side
	Err  error
}

// SourceCandidate is a Source inside a pool.
type SourceCandidate struct {
	records.Source
	reserved bool
}

// Reserved reports whether the candidate has been assigned during this run.
func (c *SourceCandidate) Reserved() bool { return c.reserved }

// Reserve marks the candidate as assigned.
func (c *SourceCandidate) Reserve() { c.reserved = true }

// TargetCandidate is a Target inside a pool.
type TargetCandidate struct {
	records.Target
	reserved bool
}

// Reserved reports whether the candidate has been assigned during this run.
func (c *TargetCandidate) Reserved() bool { return c.reserved }

// Reserve marks the candidate as assigned.
func (c *TargetCandidate) Reserve() { c.reserved = true }

// Group holds the candidates sharing one counterparty key, in input order.
type Group struct {
	Key     string
	Sources []*SourceCandidate
	Targets []*TargetCandidate
}

// Matchable reports whether the group has at least one Source and one Target.
func (g *Group) Matchable() bool {
	return len(g.Sources) > 0 && len(g.Targets) > 0
}

// Pool indexes candidates by counterparty key.
type Pool struct {
	groups map[string]*Group
	keys   []string
}

// Build groups sources and targets by normalized counterparty. Records whose
// counterparty cannot be normalized are returned as rejected and left out.
func Build(sources []records.Source, targets []records.Target) (*Pool, []Rejected) {
	return BuildWithCache(sources, targets, nil)
}

// BuildWithCache is Build with counterparty keys looked up in cache.
// A nil cache normalizes every name.
func BuildWithCache(sources []records.Source, targets []records.Target, cache *KeyCache) (*Pool, []Rejected) {
	p := &Pool{groups: make(map[string]*Group)}
	var rejected []Rejected

	normalize := NormalizeCounterparty
	if cache != nil {
		normalize = cache.Key
	}

	for _, s := range sources {
		key, err := normalize(s.Counterparty)
		if err != nil {
			rejected = append(rejected, Rejected{ID: s.ID, Side: SideSource, Err: err})
			continue
		}
		g := p.group(key)
		g.Sources = append(g.Sources, &SourceCandidate{Source: s})
	}

	for _, t := range targets {
		key, err := normalize(t.Counterparty)
		if err != nil {
			rejected = append(rejected, Rejected{ID: t.ID, Side: SideTarget, Err: err})
			continue
		}
		g := p.group(key)
		g.Targets = append(g.Targets, &TargetCandidate{Target: t})
	}

	sort.Strings(p.keys)
	return p, rejected
}

func (p *Pool) group(key string) *Group {
	g, ok := p.groups[key]
	if !ok {
		g = &Group{Key: key}
		p.groups[key] = g
		p.keys = append(p.keys, key)
	}
	return g
}

// Groups returns every group sorted by key.
func (p *Pool) Groups() []*Group {
	out := make([]*Group, 0, len(p.keys))
	for _, k := range p.keys {
		out = append(out, p.groups[k])
	}
	return out
}

// GroupsByCounterparty returns the groups that can produce a match, sorted by
// key. Groups with no Sources or no Targets are skipped.
func (p *Pool) GroupsByCounterparty() []*Group {
	out := make([]*Group, 0, len(p.keys))
	for _, k := range p.keys {
		if g := p.groups[k]; g.Matchable() {
			out = append(out, g)
		}
	}
	return out
}

// Group returns the group for a normalized key.
func (p *Pool) Group(key string) (*Group, bool) {
	g, ok := p.groups[key]
	return g, ok
}

// UnreservedSourceIDs lists every Source not assigned during the run, sorted.
func (p *Pool) UnreservedSourceIDs() []string {
	ids := make([]string, 0)
	for _, g := range p.groups {
		for _, s := range g.Sources {
			if !s.Reserved() {
				ids = append(ids, s.ID)
			}
		}
	}
	sort.Strings(ids)
	return ids
}

// UnreservedTargetIDs lists every Target not assigned during the run, sorted.
func (p *Pool) UnreservedTargetIDs() []string {
	ids := make([]string, 0)
	for _, g := range p.groups {
		for _, t := range g.Targets {
			if !t.Reserved() {
				ids = append(ids, t.ID)
			}
		}
	}
	sort.Strings(ids)
	return ids
}
