package coordinator

import "sync"

type txState int

const (
	txPending txState = iota
	txCommitted
	txRolledBack
)

func (s txState) String() string {
	switch s {
	case txPending:
		return "pending"
	case txCommitted:
		return "committed"
	case txRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

type member struct {
	facility  string
	bookingID string
}

// transaction tracks the members of one multi-facility request. Lock order is
// pool.mu before tx.mu: the cancel hook marks a transaction broken while its
// pool is locked, and nothing locks a pool while holding tx.mu.
type transaction struct {
	id string

	mu        sync.Mutex
	state     txState
	members   []member
	broken    bool
	brokenAt  string
	cascaded  bool
	remaining int
}

func newTransaction(id string) *transaction {
	return &transaction{id: id}
}

func (tx *transaction) add(facility, bookingID string) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.members = append(tx.members, member{facility: facility, bookingID: bookingID})
	tx.remaining++
}

// markBroken records that a member on facility was evicted. The first
// eviction wins.
func (tx *transaction) markBroken(facility string) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if !tx.broken {
		tx.broken = true
		tx.brokenAt = facility
	}
}

// brokenFacility reports where the transaction was broken, if it was.
func (tx *transaction) brokenFacility() (string, bool) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.brokenAt, tx.broken
}

// commit moves Pending to Committed unless a member was already evicted.
func (tx *transaction) commit() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.state != txPending || tx.broken {
		return false
	}
	tx.state = txCommitted
	return true
}

func (tx *transaction) rollBack() {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.state = txRolledBack
}

// cascadeTargets returns the members to cancel after an eviction broke a
// committed transaction. Pending transactions are rolled back by their own
// submitter instead, so they return nothing. Each transaction cascades once.
func (tx *transaction) cascadeTargets() []member {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.state != txCommitted || !tx.broken || tx.cascaded {
		return nil
	}
	tx.cascaded = true
	return append([]member(nil), tx.members...)
}

// released counts down live members and reports when none are left.
func (tx *transaction) released() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.remaining--
	return tx.remaining <= 0
}

func (tx *transaction) snapshot() (txState, []member) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.state, append([]member(nil), tx.members...)
}
