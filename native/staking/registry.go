package staking

import "fmt"

type registryState interface {
	StakeholderIndex(addr [20]byte) (uint64, error)
	PutStakeholderIndex(addr [20]byte, index uint64) error
	StakeholderCount() (uint64, error)
	PutStakeholderCount(count uint64) error
}

// Registry assigns every staking account a stable, 1-based index the first
// time it stakes. Index 0 means the account never staked. Entries are never
// removed or reassigned.
type Registry struct {
	state registryState
}

// NewRegistry binds a registry to its backing state.
func NewRegistry(state registryState) *Registry {
	return &Registry{state: state}
}

// IndexOf returns the registry index for addr, or 0 when addr never staked.
func (r *Registry) IndexOf(addr [20]byte) (uint64, error) {
	if r == nil || r.state == nil {
		return 0, errNilState
	}
	return r.state.StakeholderIndex(addr)
}

// RegisterIfAbsent returns the index of addr, assigning the next free index
// when the account is new. created reports whether an entry was written.
func (r *Registry) RegisterIfAbsent(addr [20]byte) (index uint64, created bool, err error) {
	if r == nil || r.state == nil {
		return 0, false, errNilState
	}
	existing, err := r.state.StakeholderIndex(addr)
	if err != nil {
		return 0, false, err
	}
	if existing != 0 {
		return existing, false, nil
	}
	count, err := r.state.StakeholderCount()
	if err != nil {
		return 0, false, err
	}
	next := count + 1
	if next == 0 {
		return 0, false, fmt.Errorf("staking: stakeholder registry exhausted")
	}
	if err := r.state.PutStakeholderIndex(addr, next); err != nil {
		return 0, false, err
	}
	if err := r.state.PutStakeholderCount(next); err != nil {
		return 0, false, err
	}
	return next, true, nil
}

// Count returns the number of registered stakeholders.
func (r *Registry) Count() (uint64, error) {
	if r == nil || r.state == nil {
		return 0, errNilState
	}
	return r.state.StakeholderCount()
}
