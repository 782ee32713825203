// Package clusters groups elements into disjoint sets, merging sets
// whenever an edge joins two of them.
//
// Membership is tracked with explicit maps instead of rank/path
// trees: lookups are O(1), and a merge costs O(size of the smaller
// cluster).
package clusters

import (
	"fmt"
	"sort"
)

// Clusters partitions a set of elements. The zero value is not
// usable; use New or FromPair.
type Clusters[T comparable] struct {
	membership map[T]int
	clusters   map[int][]T
	count      int // next cluster id
}

func New[T comparable]() *Clusters[T] {
	return &Clusters[T]{
		membership: map[T]int{},
		clusters:   map[int][]T{},
	}
}

// FromPair returns a Clusters with one cluster holding a and b.
func FromPair[T comparable](a, b T) *Clusters[T] {
	c := New[T]()
	c.AddEdge(a, b)
	return c
}

func (c *Clusters[T]) addCluster(members ...T) {
	id := c.count
	c.count++
	c.clusters[id] = members
	for _, m := range members {
		c.membership[m] = id
	}
}

// AddEdge records that a and b belong to the same cluster, creating,
// growing, or merging clusters as needed.
func (c *Clusters[T]) AddEdge(a, b T) {
	if a == b {
		c.AddNode(a)
		return
	}
	_, aok := c.membership[a]
	_, bok := c.membership[b]
	switch {
	case !aok && !bok:
		c.addCluster(a, b)
	case aok && !bok:
		c.addToClusterWith(b, a)
	case !aok && bok:
		c.addToClusterWith(a, b)
	default:
		c.mergeClustersContaining(a, b)
	}
}

// AddNode adds a as a singleton cluster unless it is already present.
func (c *Clusters[T]) AddNode(a T) {
	if _, ok := c.membership[a]; !ok {
		c.addCluster(a)
	}
}

func (c *Clusters[T]) mustFind(member T) int {
	id, ok := c.membership[member]
	if !ok {
		panic(fmt.Sprintf("clusters: %v is not a member", member))
	}
	return id
}

// existing must already be a member.
func (c *Clusters[T]) addToClusterWith(newMember, existing T) {
	id := c.mustFind(existing)
	c.clusters[id] = append(c.clusters[id], newMember)
	c.membership[newMember] = id
}

// Both members must already be present. The smaller cluster is
// absorbed into the larger one.
func (c *Clusters[T]) mergeClustersContaining(a, b T) {
	keep, drop := c.mustFind(a), c.mustFind(b)
	if keep == drop {
		return
	}
	if len(c.clusters[drop]) > len(c.clusters[keep]) {
		keep, drop = drop, keep
	}
	for _, m := range c.clusters[drop] {
		c.membership[m] = keep
	}
	c.clusters[keep] = append(c.clusters[keep], c.clusters[drop]...)
	delete(c.clusters, drop)
}

// ClusterOf returns the id of the cluster containing member.
func (c *Clusters[T]) ClusterOf(member T) (id int, ok bool) {
	id, ok = c.membership[member]
	return
}

// Members returns the members of cluster id, or nil if there is no
// such cluster. The returned slice must not be modified.
func (c *Clusters[T]) Members(id int) []T {
	return c.clusters[id]
}

// Len returns the number of clusters.
func (c *Clusters[T]) Len() int {
	return len(c.clusters)
}

// Each calls fn for every cluster in ascending id order.
func (c *Clusters[T]) Each(fn func(id int, members []T)) {
	ids := make([]int, 0, len(c.clusters))
	for id := range c.clusters {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fn(id, c.clusters[id])
	}
}

// Equal reports whether c and other partition the same elements into
// the same groups. Cluster ids and member order are ignored.
func (c *Clusters[T]) Equal(other *Clusters[T]) bool {
	if len(c.clusters) != len(other.clusters) || len(c.membership) != len(other.membership) {
		return false
	}
	for _, members := range c.clusters {
		otherID, ok := other.membership[members[0]]
		if !ok || len(other.clusters[otherID]) != len(members) {
			return false
		}
		for _, m := range members[1:] {
			if id, ok := other.membership[m]; !ok || id != otherID {
				return false
			}
		}
	}
	return true
}
