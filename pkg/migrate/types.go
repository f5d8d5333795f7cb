package migrate

import "time"

// Applied describes one migration that ran.
type Applied struct {
	Version   int64
	File      string
	Direction string
	Duration  time.Duration
}

// State is a migration as reported by Status.
type State struct {
	Version   int64
	File      string
	Applied   bool
	AppliedAt time.Time
}
