package domain

// Limit is an optional numeric bound. The zero value means "no constraint",
// making the unbounded case an explicit, testable variant instead of a nil.
type Limit struct {
	set   bool
	value float64
}

// LimitOf returns a bound set to v.
func LimitOf(v float64) Limit {
	return Limit{set: true, value: v}
}

// NoLimit returns an unset bound.
func NoLimit() Limit {
	return Limit{}
}

// LimitFromPtr converts a nullable column value into a Limit.
func LimitFromPtr(p *float64) Limit {
	if p == nil {
		return NoLimit()
	}
	return LimitOf(*p)
}

// Enabled reports whether the bound is set.
func (l Limit) Enabled() bool {
	return l.set
}

// Value returns the bound and whether it is set.
func (l Limit) Value() (float64, bool) {
	return l.value, l.set
}

// Ptr returns the bound as a nullable column value.
func (l Limit) Ptr() *float64 {
	if !l.set {
		return nil
	}
	v := l.value
	return &v
}

// AllowsMax reports whether x satisfies the bound read as an upper limit.
// An unset bound allows everything.
func (l Limit) AllowsMax(x float64) bool {
	return !l.set || x <= l.value
}

// AllowsMin reports whether x satisfies the bound read as a lower limit.
// An unset bound allows everything.
func (l Limit) AllowsMin(x float64) bool {
	return !l.set || x >= l.value
}
