// Package hierarchy resolves the tag parent graph into tiers, descendant sets and a display forest.
//
// The parent links are stored as plain ids and nothing in the database stops them
// from forming a cycle, so every walk here is bounded. A tag that sits on a parent
// cycle is treated as a root; tags hanging below the cycle keep their links.
// A parent id that is not in the snapshot also makes the tag a root.
//
// A Resolver is built from one snapshot of tag rows and must not be reused across
// requests, since tags change between them.
package hierarchy

import (
	"cmp"
	"slices"
	"strings"

	"github.com/listenupapp/diary-server/internal/domain"
)

// Resolver answers hierarchy questions over a fixed snapshot of tags.
// It is not safe for concurrent use because Tier memoizes.
type Resolver struct {
	tags     map[int64]domain.Tag
	keys     map[int64]string
	parent   map[int64]int64 // effective parent; absent for roots
	children map[int64][]int64
	roots    []int64
	cyclic   map[int64]bool
	tiers    map[int64]int
}

// New snapshots tags and neutralizes any parent cycle.
func New(tags []domain.Tag) *Resolver {
	r := &Resolver{
		tags:     make(map[int64]domain.Tag, len(tags)),
		keys:     make(map[int64]string, len(tags)),
		parent:   make(map[int64]int64, len(tags)),
		children: make(map[int64][]int64),
		cyclic:   make(map[int64]bool),
		tiers:    make(map[int64]int, len(tags)),
	}

	for _, t := range tags {
		r.tags[t.ID] = t
		r.keys[t.ID] = domain.FoldKey(t.Name)
	}

	raw := make(map[int64]int64, len(tags))
	for _, t := range tags {
		if t.ParentID == nil {
			continue
		}
		if _, ok := r.tags[*t.ParentID]; !ok {
			continue
		}
		raw[t.ID] = *t.ParentID
	}

	r.markCycles(raw)

	for id := range r.tags {
		p, ok := raw[id]
		if !ok || r.cyclic[id] {
			r.roots = append(r.roots, id)
			continue
		}
		r.parent[id] = p
		r.children[p] = append(r.children[p], id)
	}

	r.sortByName(r.roots)
	for p := range r.children {
		r.sortByName(r.children[p])
	}

	return r
}

// markCycles records every tag lying on a cycle of raw parent links.
// Each tag is walked at most once: 0 = unseen, 1 = on the current path, 2 = done.
func (r *Resolver) markCycles(raw map[int64]int64) {
	state := make(map[int64]uint8, len(r.tags))

	for start := range r.tags {
		if state[start] != 0 {
			continue
		}

		var path []int64
		cur := start
		for {
			state[cur] = 1
			path = append(path, cur)

			next, ok := raw[cur]
			if !ok || state[next] == 2 {
				break
			}
			if state[next] == 1 {
				// next is on the current path: everything from it onward is the cycle.
				i := slices.Index(path, next)
				for _, id := range path[i:] {
					r.cyclic[id] = true
				}
				break
			}
			cur = next
		}

		for _, id := range path {
			state[id] = 2
		}
	}
}

func (r *Resolver) sortByName(ids []int64) {
	slices.SortFunc(ids, func(a, b int64) int {
		return cmp.Or(
			cmp.Compare(r.keys[a], r.keys[b]),
			cmp.Compare(r.tags[a].Name, r.tags[b].Name),
			cmp.Compare(a, b),
		)
	})
}

// Len returns the number of tags in the snapshot.
func (r *Resolver) Len() int {
	return len(r.tags)
}

// Has reports whether id is in the snapshot.
func (r *Resolver) Has(id int64) bool {
	_, ok := r.tags[id]
	return ok
}

// Cyclic reports whether id was found on a parent cycle and demoted to a root.
func (r *Resolver) Cyclic(id int64) bool {
	return r.cyclic[id]
}

// Parent returns the effective parent of id.
func (r *Resolver) Parent(id int64) (int64, bool) {
	p, ok := r.parent[id]
	return p, ok
}

// Tier returns the number of parent hops from id to its root.
// Roots, unknown ids and cycle members have tier 0.
func (r *Resolver) Tier(id int64) int {
	if t, ok := r.tiers[id]; ok {
		return t
	}

	// Walk up until a root or an already known tier, then fill in on the way back.
	var chain []int64
	visited := make(map[int64]bool)
	cur := id
	var base int
	for {
		if t, ok := r.tiers[cur]; ok {
			base = t
			break
		}
		if visited[cur] {
			// Unreachable for the effective graph; stop rather than loop.
			base = -1
			break
		}
		visited[cur] = true
		chain = append(chain, cur)

		p, ok := r.parent[cur]
		if !ok {
			base = -1
			break
		}
		cur = p
	}

	for i := len(chain) - 1; i >= 0; i-- {
		base++
		r.tiers[chain[i]] = base
	}

	return r.tiers[id]
}

// Descendants returns id and every tag reachable through child links.
// An unknown id yields a set holding only itself.
func (r *Resolver) Descendants(id int64) map[int64]struct{} {
	out := map[int64]struct{}{id: {}}
	queue := []int64{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range r.children[cur] {
			if _, seen := out[c]; seen {
				continue
			}
			out[c] = struct{}{}
			queue = append(queue, c)
		}
	}
	return out
}

// DescendantIDs returns Descendants(id) as a sorted slice.
func (r *Resolver) DescendantIDs(id int64) []int64 {
	return sortedIDs(r.Descendants(id))
}

// Ancestors returns id followed by each effective ancestor, nearest first.
func (r *Resolver) Ancestors(id int64) []int64 {
	out := []int64{id}
	seen := map[int64]bool{id: true}
	cur := id
	for {
		p, ok := r.parent[cur]
		if !ok || seen[p] {
			return out
		}
		seen[p] = true
		out = append(out, p)
		cur = p
	}
}

// MatchingDescendants unions the descendant sets of every tag whose folded
// name contains key. key must already be folded.
func (r *Resolver) MatchingDescendants(key string) []int64 {
	set := make(map[int64]struct{})
	for id, k := range r.keys {
		if !strings.Contains(k, key) {
			continue
		}
		for d := range r.Descendants(id) {
			set[d] = struct{}{}
		}
	}
	return sortedIDs(set)
}

// Forest returns the root nodes with nested children, ordered by name at every level.
func (r *Resolver) Forest() []*domain.TagNode {
	out := make([]*domain.TagNode, 0, len(r.roots))
	for _, id := range r.roots {
		out = append(out, r.node(id, 0))
	}
	return out
}

func (r *Resolver) node(id int64, tier int) *domain.TagNode {
	t := r.tags[id]
	n := &domain.TagNode{
		ID:       id,
		Name:     t.Name,
		Tier:     tier,
		Children: make([]*domain.TagNode, 0, len(r.children[id])),
	}
	if p, ok := r.parent[id]; ok {
		n.ParentID = &p
	}
	for _, c := range r.children[id] {
		n.Children = append(n.Children, r.node(c, tier+1))
	}
	return n
}

// Tiers groups every tag by tier, ascending, with names sorted inside a tier.
func (r *Resolver) Tiers() []domain.TagTier {
	byTier := make(map[int][]int64)
	maxTier := -1
	for id := range r.tags {
		t := r.Tier(id)
		byTier[t] = append(byTier[t], id)
		maxTier = max(maxTier, t)
	}

	out := make([]domain.TagTier, 0, maxTier+1)
	for tier := 0; tier <= maxTier; tier++ {
		ids := byTier[tier]
		if len(ids) == 0 {
			continue
		}
		r.sortByName(ids)
		group := domain.TagTier{Tier: tier, Tags: make([]domain.Tag, 0, len(ids))}
		for _, id := range ids {
			group.Tags = append(group.Tags, r.tags[id])
		}
		out = append(out, group)
	}
	return out
}

func sortedIDs(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
