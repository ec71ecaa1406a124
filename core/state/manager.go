package state

import (
	"errors"
	"fmt"
	"sort"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"riskgate/storage"
)

// Manager stages RLP encoded records over a storage.Database. Writes stay in
// an in-memory overlay until Commit flushes them in a single batch; Snapshot
// and RevertToSnapshot let callers undo part of the overlay.
//
// Manager is not safe for concurrent use.
type Manager struct {
	db        storage.Database
	dirty     map[string]pending
	journal   []journalEntry
	revisions []revision
	nextRevID int
}

type pending struct {
	value   []byte
	deleted bool
}

// journalEntry remembers what a key held in the overlay before a write.
type journalEntry struct {
	key     string
	prev    pending
	hadPrev bool
}

type revision struct {
	id           int
	journalIndex int
}

// NewManager creates a state manager over db.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db, dirty: make(map[string]pending)}
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

func (m *Manager) record(hashed string) {
	prev, ok := m.dirty[hashed]
	m.journal = append(m.journal, journalEntry{key: hashed, prev: prev, hadPrev: ok})
}

func (m *Manager) read(hashed []byte) ([]byte, error) {
	if entry, ok := m.dirty[string(hashed)]; ok {
		if entry.deleted {
			return nil, nil
		}
		return entry.value, nil
	}
	data, err := m.db.Get(hashed)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return data, err
}

// KVPut RLP encodes value and stages it under key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	hashed := string(kvKey(key))
	m.record(hashed)
	m.dirty[hashed] = pending{value: encoded}
	return nil
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.read(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete stages removal of key.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	hashed := string(kvKey(key))
	m.record(hashed)
	m.dirty[hashed] = pending{deleted: true}
	return nil
}

// Snapshot returns an identifier for the current overlay.
func (m *Manager) Snapshot() int {
	id := m.nextRevID
	m.nextRevID++
	m.revisions = append(m.revisions, revision{id: id, journalIndex: len(m.journal)})
	return id
}

// RevertToSnapshot undoes every write staged after the snapshot was taken.
// Unknown identifiers are ignored.
func (m *Manager) RevertToSnapshot(id int) {
	idx := sort.Search(len(m.revisions), func(i int) bool {
		return m.revisions[i].id >= id
	})
	if idx == len(m.revisions) || m.revisions[idx].id != id {
		return
	}
	target := m.revisions[idx].journalIndex
	for i := len(m.journal) - 1; i >= target; i-- {
		entry := m.journal[i]
		if entry.hadPrev {
			m.dirty[entry.key] = entry.prev
		} else {
			delete(m.dirty, entry.key)
		}
	}
	m.journal = m.journal[:target]
	m.revisions = m.revisions[:idx]
}

// Pending reports how many keys are staged.
func (m *Manager) Pending() int {
	return len(m.dirty)
}

// Commit writes the overlay to the database in one batch and resets the
// journal. On failure the overlay is kept so the caller may Discard it.
func (m *Manager) Commit() error {
	if len(m.dirty) == 0 {
		m.resetJournal()
		return nil
	}
	keys := make([]string, 0, len(m.dirty))
	for key := range m.dirty {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	writes := make([]storage.Write, 0, len(keys))
	for _, key := range keys {
		entry := m.dirty[key]
		write := storage.Write{Key: []byte(key)}
		if !entry.deleted {
			write.Value = entry.value
		}
		writes = append(writes, write)
	}
	if err := m.db.WriteBatch(writes); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	m.dirty = make(map[string]pending)
	m.resetJournal()
	return nil
}

// Discard drops every staged write.
func (m *Manager) Discard() {
	m.dirty = make(map[string]pending)
	m.resetJournal()
}

func (m *Manager) resetJournal() {
	m.journal = nil
	m.revisions = nil
}
