// Package fresh tracks when optional values were last updated so each one can
// expire on its own timeout.
//
// Times are plain seconds in whatever time base the caller uses (GPS time of
// day for sensor fields, monotonic seconds for link liveness). A zero time is
// a legal stamp; validity is tracked separately.
package fresh

// Stamp records the time of the last update.
type Stamp struct {
	at  float64
	set bool
}

// Update marks the stamp as refreshed at t.
func (s *Stamp) Update(t float64) {
	s.at = t
	s.set = true
}

// Clear marks the stamp as never updated.
func (s *Stamp) Clear() {
	*s = Stamp{}
}

// IsValid reports whether the stamp has been updated and not cleared or expired.
func (s Stamp) IsValid() bool {
	return s.set
}

// At returns the time of the last update. It is meaningless when !IsValid().
func (s Stamp) At() float64 {
	return s.at
}

// Current reports whether the stamp is valid and younger than timeout at now.
func (s Stamp) Current(now, timeout float64) bool {
	return s.set && now-s.at < timeout
}

// Expire clears the stamp if it is no longer current. It returns true if the
// stamp was cleared by this call.
func (s *Stamp) Expire(now, timeout float64) bool {
	if !s.set || s.Current(now, timeout) {
		return false
	}
	s.Clear()
	return true
}

// Modified reports whether s is valid and newer than other. An invalid other
// is older than any valid stamp.
func (s Stamp) Modified(other Stamp) bool {
	if !s.set {
		return false
	}
	return !other.set || s.at > other.at
}

// Value pairs a value with the stamp of its last update.
type Value[T any] struct {
	Stamp
	v T
}

// Update stores v and stamps it at t.
func (v *Value[T]) Update(val T, t float64) {
	v.v = val
	v.Stamp.Update(t)
}

// Set stores val without touching the stamp. Used for derived values that
// inherit the validity of their source.
func (v *Value[T]) Set(val T) {
	v.v = val
}

// Get returns the stored value whether or not it is still valid. Callers
// check IsValid or Current first.
func (v Value[T]) Get() T {
	return v.v
}

// Clear drops both the value and the stamp.
func (v *Value[T]) Clear() {
	var zero T
	v.v = zero
	v.Stamp.Clear()
}
