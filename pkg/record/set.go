package record

import (
	"github.com/emirpasic/gods/sets/linkedhashset"
	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/emirpasic/gods/utils"
)

// Set is a set of record ids that remembers insertion order. Sibling sets rely on the
// order: the first element is the most relevant link.
type Set struct {
	inner *linkedhashset.Set
}

func NewSet(ids ...RecordID) *Set {
	s := &Set{inner: linkedhashset.New()}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s *Set) Add(ids ...RecordID) {
	for _, id := range ids {
		s.inner.Add(id)
	}
}

func (s *Set) Contains(id RecordID) bool {
	return s.inner.Contains(id)
}

func (s *Set) Len() int {
	return s.inner.Size()
}

func (s *Set) Empty() bool {
	return s.inner.Empty()
}

// First returns the earliest inserted id.
func (s *Set) First() (RecordID, bool) {
	it := s.inner.Iterator()
	if !it.First() {
		return RecordID{}, false
	}
	return it.Value().(RecordID), true
}

// Values returns the ids in insertion order.
func (s *Set) Values() []RecordID {
	values := make([]RecordID, 0, s.inner.Size())
	for _, v := range s.inner.Values() {
		values = append(values, v.(RecordID))
	}
	return values
}

// Filter returns a new set holding the ids accepted by keep, in the same order.
func (s *Set) Filter(keep func(RecordID) bool) *Set {
	out := NewSet()
	for _, id := range s.Values() {
		if keep(id) {
			out.Add(id)
		}
	}
	return out
}

// Sorted returns the ids ordered by agency, then bibliographic id.
func (s *Set) Sorted() []RecordID {
	tree := redblacktree.NewWith(func(a, b interface{}) int {
		return Compare(a.(RecordID), b.(RecordID))
	})
	for _, v := range s.inner.Values() {
		tree.Put(v, nil)
	}
	values := make([]RecordID, 0, tree.Size())
	for _, k := range tree.Keys() {
		values = append(values, k.(RecordID))
	}
	return values
}

// AgencySet is a sorted set of agency ids.
type AgencySet struct {
	inner *redblacktree.Tree
}

func NewAgencySet(agencies ...int) *AgencySet {
	s := &AgencySet{inner: redblacktree.NewWith(utils.IntComparator)}
	for _, a := range agencies {
		s.inner.Put(a, nil)
	}
	return s
}

func (s *AgencySet) Add(agencyID int) {
	s.inner.Put(agencyID, nil)
}

func (s *AgencySet) Contains(agencyID int) bool {
	_, ok := s.inner.Get(agencyID)
	return ok
}

func (s *AgencySet) Len() int {
	return s.inner.Size()
}

// Values returns the agencies in ascending order.
func (s *AgencySet) Values() []int {
	values := make([]int, 0, s.inner.Size())
	for _, k := range s.inner.Keys() {
		values = append(values, k.(int))
	}
	return values
}
