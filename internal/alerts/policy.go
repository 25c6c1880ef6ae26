package alerts

import "time"

// Policy holds the threshold + dedup gates applied to failure events.
// Recovery events bypass both gates.
type Policy struct {
	FailureThreshold int
	DedupWindow      time.Duration
}

// DefaultPolicy mirrors the defaults named in the configuration table:
// FAILURE_THRESHOLD=3, DEDUP_WINDOW_MINUTES=15.
func DefaultPolicy() Policy {
	return Policy{FailureThreshold: 3, DedupWindow: 15 * time.Minute}
}
