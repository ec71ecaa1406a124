package state

import (
	"errors"
	"fmt"
	"math"
)

// StateVersion identifies the expected on-disk schema layout. Increment this
// constant whenever breaking changes are made to the stored records.
const StateVersion uint32 = 1

var (
	stateVersionKey = []byte("state/version")
	// ErrStateVersionMismatch indicates the stored schema version does not
	// match the version supported by the current binary.
	ErrStateVersionMismatch = errors.New("state: schema version mismatch")
)

// SetStateVersion stages the provided schema version.
func (m *Manager) SetStateVersion(version uint32) error {
	if m == nil {
		return fmt.Errorf("state: manager unavailable")
	}
	return m.KVPut(stateVersionKey, uint64(version))
}

// StateVersion returns the stored schema version and a boolean indicating
// whether the value was present.
func (m *Manager) StateVersion() (uint32, bool, error) {
	if m == nil {
		return 0, false, fmt.Errorf("state: manager unavailable")
	}
	var stored uint64
	ok, err := m.KVGet(stateVersionKey, &stored)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return 0, false, nil
	}
	if stored > uint64(math.MaxUint32) {
		return 0, false, fmt.Errorf("state: schema version overflow: %d", stored)
	}
	return uint32(stored), true, nil
}

// EnsureStateVersion verifies the stored schema version. A store without a
// version is stamped with the current one and reported as fresh.
func EnsureStateVersion(m *Manager) (fresh bool, err error) {
	version, ok, err := m.StateVersion()
	if err != nil {
		return false, err
	}
	if !ok {
		if err := m.SetStateVersion(StateVersion); err != nil {
			return false, err
		}
		return true, nil
	}
	if version != StateVersion {
		return false, fmt.Errorf("%w: on-disk=%d expected=%d", ErrStateVersionMismatch, version, StateVersion)
	}
	return false, nil
}
