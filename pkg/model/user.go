package model

import "fmt"

// Priority is the admission class of a user. The eviction rule only ever
// compares two priorities, so it lives in one place: Priority.Preempts.
type Priority int

const (
	PriorityStandard Priority = iota
	PriorityVIP
)

func (p Priority) String() string {
	switch p {
	case PriorityStandard:
		return "standard"
	case PriorityVIP:
		return "vip"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(text []byte) error {
	switch string(text) {
	case "standard":
		*p = PriorityStandard
	case "vip":
		*p = PriorityVIP
	default:
		return fmt.Errorf("unknown priority %q", string(text))
	}
	return nil
}

// Preempts reports whether a holder of p may evict a holder of other.
// Only VIP over Standard; VIP bookings are never evicted.
func (p Priority) Preempts(other Priority) bool {
	return p == PriorityVIP && other == PriorityStandard
}

type User struct {
	ID       string   `json:"id"`
	Priority Priority `json:"priority"`
}

func (u User) IsVIP() bool {
	return u.Priority == PriorityVIP
}
