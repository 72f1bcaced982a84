package state

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
	"lukechampine.com/blake3"

	"devtoken/storage"
)

type journalEntry struct {
	value   []byte
	deleted bool
}

// Manager reads and writes ledger and staking records on top of a key/value
// database. Writes are staged in a journal that is visible to subsequent reads
// and only reaches the database on Commit. Discard drops every staged write.
//
// Manager is not safe for concurrent use.
type Manager struct {
	db      storage.Database
	journal map[string]journalEntry
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db, journal: make(map[string]journalEntry)}
}

func (m *Manager) get(key []byte) ([]byte, error) {
	if entry, ok := m.journal[string(key)]; ok {
		if entry.deleted {
			return nil, nil
		}
		return entry.value, nil
	}
	value, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (m *Manager) put(key, value []byte) {
	m.journal[string(key)] = journalEntry{value: append([]byte(nil), value...)}
}

func (m *Manager) delete(key []byte) {
	m.journal[string(key)] = journalEntry{deleted: true}
}

func (m *Manager) getRLP(key []byte, out interface{}) (bool, error) {
	data, err := m.get(key)
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("state: decode %x: %w", key, err)
	}
	return true, nil
}

func (m *Manager) putRLP(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	m.put(key, encoded)
	return nil
}

// Pending returns the number of staged writes.
func (m *Manager) Pending() int { return len(m.journal) }

// Discard drops all staged writes.
func (m *Manager) Discard() {
	if len(m.journal) == 0 {
		return
	}
	m.journal = make(map[string]journalEntry)
}

// Commit writes the journal to the database as a single batch and advances
// the state fingerprint. An empty journal is a no-op.
func (m *Manager) Commit() error {
	if len(m.journal) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m.journal))
	for key := range m.journal {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	prev, err := m.committedFingerprint()
	if err != nil {
		return err
	}
	var digest bytes.Buffer
	digest.Write(prev[:])

	batch := m.db.NewBatch()
	for _, key := range keys {
		entry := m.journal[key]
		digest.WriteString(key)
		if entry.deleted {
			digest.WriteByte(0)
			batch.Delete([]byte(key))
			continue
		}
		digest.WriteByte(1)
		digest.Write(entry.value)
		batch.Put([]byte(key), entry.value)
	}
	next := blake3.Sum256(digest.Bytes())
	batch.Put(fingerprintKey, next[:])

	if err := batch.Write(); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	m.journal = make(map[string]journalEntry)
	return nil
}

func (m *Manager) committedFingerprint() ([32]byte, error) {
	var out [32]byte
	value, err := m.db.Get(fingerprintKey)
	if errors.Is(err, storage.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return out, err
	}
	copy(out[:], value)
	return out, nil
}

// Fingerprint returns the BLAKE3 chain digest over every committed write.
// Two replicas that applied the same commits report the same fingerprint.
// Staged writes are not included.
func (m *Manager) Fingerprint() ([32]byte, error) {
	return m.committedFingerprint()
}

// Sequence returns the number of operations committed so far, as recorded by
// the caller with PutSequence.
func (m *Manager) Sequence() (uint64, error) {
	return m.getUint64(sequenceKey)
}

func (m *Manager) PutSequence(seq uint64) error {
	return m.putRLP(sequenceKey, seq)
}
