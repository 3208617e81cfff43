// Package ruleset provides a sparse set of rule identifiers.
//
// Membership, insertion and removal are O(1) and Clear does not touch the
// backing arrays, so one set can be reused across many include walks of the
// same grammar.
package ruleset

import "github.com/coregx/tmscan/pattern"

// Set is a set of rule IDs in [0, capacity).
type Set struct {
	sparse []int32 // id -> position in dense
	dense  []pattern.RuleID
}

// New creates a set able to hold IDs below capacity. Larger IDs grow it.
func New(capacity int) *Set {
	if capacity < 0 {
		capacity = 0
	}
	return &Set{
		sparse: make([]int32, capacity),
		dense:  make([]pattern.RuleID, 0, capacity),
	}
}

// Insert adds id and reports whether it was absent.
// Negative IDs are never stored.
func (s *Set) Insert(id pattern.RuleID) bool {
	if id < 0 || s.Contains(id) {
		return false
	}
	if int(id) >= len(s.sparse) {
		grown := make([]int32, int(id)*2+1)
		copy(grown, s.sparse)
		s.sparse = grown
	}
	s.sparse[id] = int32(len(s.dense))
	s.dense = append(s.dense, id)
	return true
}

// Contains reports whether id is in the set.
func (s *Set) Contains(id pattern.RuleID) bool {
	if id < 0 || int(id) >= len(s.sparse) {
		return false
	}
	i := s.sparse[id]
	return int(i) < len(s.dense) && s.dense[i] == id
}

// Remove deletes id; removing an absent id is a no-op.
func (s *Set) Remove(id pattern.RuleID) {
	if !s.Contains(id) {
		return
	}
	i := s.sparse[id]
	last := s.dense[len(s.dense)-1]
	s.dense[i] = last
	s.sparse[last] = i
	s.dense = s.dense[:len(s.dense)-1]
}

// Clear empties the set in O(1).
func (s *Set) Clear() {
	s.dense = s.dense[:0]
}

// Len returns the number of IDs in the set.
func (s *Set) Len() int {
	return len(s.dense)
}

// Values returns the IDs in insertion order, except that Remove moves the
// last ID into the freed position. The slice is valid until the next
// mutation.
func (s *Set) Values() []pattern.RuleID {
	return s.dense
}
