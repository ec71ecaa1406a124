package comptroller

import (
	"fmt"

	"riskgate/crypto"
)

// AssetSet is the ordered membership list of a single account. The index maps
// every member to its position in list, so lookups and removals are O(1).
type AssetSet struct {
	list  []crypto.Address
	index map[crypto.Address]int
}

// NewAssetSet builds a set from assets, keeping the first occurrence of each.
func NewAssetSet(assets ...crypto.Address) *AssetSet {
	set := &AssetSet{index: make(map[crypto.Address]int, len(assets))}
	for _, asset := range assets {
		set.Add(asset)
	}
	return set
}

// Len returns the number of members.
func (s *AssetSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.list)
}

// Contains reports whether asset is a member.
func (s *AssetSet) Contains(asset crypto.Address) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[asset]
	return ok
}

// Add appends asset when absent and reports whether the set changed.
func (s *AssetSet) Add(asset crypto.Address) bool {
	if s.index == nil {
		s.index = make(map[crypto.Address]int)
	}
	if _, ok := s.index[asset]; ok {
		return false
	}
	s.index[asset] = len(s.list)
	s.list = append(s.list, asset)
	return true
}

// Remove deletes asset by moving the last member into its slot. It returns
// false when asset was absent and ErrConsistency when the index disagrees with
// the list.
func (s *AssetSet) Remove(asset crypto.Address) (bool, error) {
	if s == nil {
		return false, nil
	}
	pos, ok := s.index[asset]
	if !ok {
		return false, nil
	}
	if pos < 0 || pos >= len(s.list) || s.list[pos] != asset {
		return false, fmt.Errorf("%w: membership index for %s points at %d", ErrConsistency, asset, pos)
	}
	last := len(s.list) - 1
	if pos != last {
		moved := s.list[last]
		s.list[pos] = moved
		s.index[moved] = pos
	}
	s.list = s.list[:last]
	delete(s.index, asset)
	return true, nil
}

// Assets returns a copy of the members in order.
func (s *AssetSet) Assets() []crypto.Address {
	if s == nil {
		return nil
	}
	out := make([]crypto.Address, len(s.list))
	copy(out, s.list)
	return out
}

// Clone returns an independent copy.
func (s *AssetSet) Clone() *AssetSet {
	if s == nil {
		return NewAssetSet()
	}
	return NewAssetSet(s.list...)
}
