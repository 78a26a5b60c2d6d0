package clock

import "time"

// Clock abstracts the current time so late/present boundaries are
// deterministic in tests.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock in UTC.
type System struct{}

// Now returns the current UTC time.
func (System) Now() time.Time { return time.Now().UTC() }
