package store

import "time"

// timeDuration converts a millisecond count to a time.Duration.
func timeDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
