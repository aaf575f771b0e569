package feed

// Status is the lifecycle state of a subscription record. The source system
// spelled these differently per feed; they are one enum here, stored
// lowercase.
type Status string

const (
	StatusLive     Status = "live"
	StatusError    Status = "error"
	StatusFailed   Status = "failed"
	StatusInactive Status = "inactive"
)

// Terminal reports whether no further health checks, deliveries, or
// resubscribes may occur for a subscription in this state.
func (s Status) Terminal() bool {
	return s == StatusInactive
}
