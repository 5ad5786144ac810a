package forks

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// BankForks tracks every live bank keyed by slot, the descendants relation
// between them and the root the tree has been pruned to.
type BankForks struct {
	mu          sync.RWMutex
	banks       map[uint64]*Bank
	descendants map[uint64]map[uint64]bool
	root        uint64
}

// New returns a fork tree rooted at the given bank.
func New(bank *Bank) *BankForks {
	return NewFromBanks([]*Bank{bank}, bank.Slot())
}

// NewFromBanks builds a tree from the tips of several forks. Ancestors
// reachable from more than one tip are inserted once.
func NewFromBanks(initialForks []*Bank, root uint64) *BankForks {
	banks := make(map[uint64]*Bank)
	for _, bank := range initialForks {
		banks[bank.Slot()] = bank
		for _, parent := range bank.Parents() {
			if _, ok := banks[parent.Slot()]; ok {
				// All ancestors have already been inserted by another fork.
				break
			}
			banks[parent.Slot()] = parent
		}
	}
	descendants := make(map[uint64]map[uint64]bool)
	for slot, bank := range banks {
		if descendants[slot] == nil {
			descendants[slot] = make(map[uint64]bool)
		}
		for _, parent := range bank.properAncestors() {
			if descendants[parent] == nil {
				descendants[parent] = make(map[uint64]bool)
			}
			descendants[parent][slot] = true
		}
	}
	return &BankForks{banks: banks, descendants: descendants, root: root}
}

// Insert adds a live bank to the tree.
func (f *BankForks) Insert(bank *Bank) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	slot := bank.Slot()
	if _, ok := f.banks[slot]; ok {
		return errSlotAlreadyExists
	}
	f.banks[slot] = bank
	if f.descendants[slot] == nil {
		f.descendants[slot] = make(map[uint64]bool)
	}
	for _, parent := range bank.properAncestors() {
		if f.descendants[parent] == nil {
			f.descendants[parent] = make(map[uint64]bool)
		}
		f.descendants[parent][slot] = true
	}
	return nil
}

// Get returns the bank at the given slot.
func (f *BankForks) Get(slot uint64) (*Bank, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	bank, ok := f.banks[slot]
	return bank, ok
}

// Root returns the current root slot.
func (f *BankForks) Root() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.root
}

// RootBank returns the bank at the root slot.
func (f *BankForks) RootBank() *Bank {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.banks[f.root]
}

// HighestSlot returns the highest slot holding a bank.
func (f *BankForks) HighestSlot() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	highest := uint64(0)
	for slot := range f.banks {
		if slot > highest {
			highest = slot
		}
	}
	return highest
}

// WorkingBank returns the bank at the highest slot.
func (f *BankForks) WorkingBank() *Bank {
	f.mu.RLock()
	defer f.mu.RUnlock()
	highest := uint64(0)
	for slot := range f.banks {
		if slot > highest {
			highest = slot
		}
	}
	return f.banks[highest]
}

// Banks returns a copy of the slot to bank mapping.
func (f *BankForks) Banks() map[uint64]*Bank {
	f.mu.RLock()
	defer f.mu.RUnlock()
	banks := make(map[uint64]*Bank, len(f.banks))
	for slot, bank := range f.banks {
		banks[slot] = bank
	}
	return banks
}

// FrozenBanks returns the banks eligible for fork choice.
func (f *BankForks) FrozenBanks() map[uint64]*Bank {
	f.mu.RLock()
	defer f.mu.RUnlock()
	frozen := make(map[uint64]*Bank)
	for slot, bank := range f.banks {
		if bank.IsFrozen() {
			frozen[slot] = bank
		}
	}
	return frozen
}

// ActiveBanks returns the slots still being replayed.
func (f *BankForks) ActiveBanks() []uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var active []uint64
	for slot, bank := range f.banks {
		if !bank.IsFrozen() {
			active = append(active, slot)
		}
	}
	return active
}

// Ancestors returns, for every live bank, the set of its ancestors at or
// above the root. Every live slot has an entry, the root's being empty.
func (f *BankForks) Ancestors() map[uint64]map[uint64]bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ancestors := make(map[uint64]map[uint64]bool, len(f.banks))
	for slot, bank := range f.banks {
		set := make(map[uint64]bool)
		for _, ancestor := range bank.properAncestors() {
			if ancestor >= f.root {
				set[ancestor] = true
			}
		}
		ancestors[slot] = set
	}
	return ancestors
}

// Descendants returns a copy of the descendants relation.
func (f *BankForks) Descendants() map[uint64]map[uint64]bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	descendants := make(map[uint64]map[uint64]bool, len(f.descendants))
	for slot, set := range f.descendants {
		setCopy := make(map[uint64]bool, len(set))
		for descendant := range set {
			setCopy[descendant] = true
		}
		descendants[slot] = setCopy
	}
	return descendants
}

// SetRoot moves the root forward, detaches the root bank from its lineage
// and prunes every bank that is neither the root nor one of its descendants.
func (f *BankForks) SetRoot(root uint64) error {
	return f.SetRootWithHighestConfirmedRoot(root, root)
}

// SetRootWithHighestConfirmedRoot behaves like SetRoot but additionally
// keeps the root's own ancestors back to highestConfirmedRoot, which
// consumers of confirmation data may still need to serve.
func (f *BankForks) SetRootWithHighestConfirmedRoot(root, highestConfirmedRoot uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rootBank, ok := f.banks[root]
	if !ok {
		return errUnknownRootBank
	}
	f.root = root
	retained := f.pruneNonRoot(root, highestConfirmedRoot)
	rootBank.squash()
	log.WithFields(logrus.Fields{
		"root":          root,
		"banksRetained": retained,
	}).Debug("Set new root")
	return nil
}

func (f *BankForks) pruneNonRoot(root, highestConfirmedRoot uint64) int {
	rootDescendants := f.descendants[root]
	var pruneSlots []uint64
	for slot := range f.banks {
		keep := slot == root ||
			rootDescendants[slot] ||
			(slot < root && slot >= highestConfirmedRoot && f.descendants[slot][root])
		if !keep {
			pruneSlots = append(pruneSlots, slot)
		}
	}
	for _, slot := range pruneSlots {
		f.removeLocked(slot)
	}
	return len(f.banks)
}

// Remove drops a bank and its descendant edges from the tree.
func (f *BankForks) Remove(slot uint64) (*Bank, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.removeLocked(slot)
}

func (f *BankForks) removeLocked(slot uint64) (*Bank, bool) {
	bank, ok := f.banks[slot]
	if !ok {
		return nil, false
	}
	delete(f.banks, slot)
	for _, parent := range bank.properAncestors() {
		entry, ok := f.descendants[parent]
		if !ok {
			panic("descendants map out of sync with bank forks")
		}
		delete(entry, slot)
		if len(entry) == 0 {
			if _, stillBanked := f.banks[parent]; !stillBanked {
				delete(f.descendants, parent)
			}
		}
	}
	entry, ok := f.descendants[slot]
	if !ok {
		panic("descendants map out of sync with bank forks")
	}
	if len(entry) == 0 {
		delete(f.descendants, slot)
	}
	return bank, true
}
