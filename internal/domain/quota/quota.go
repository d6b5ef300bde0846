package quota

// DefaultWarningThreshold is the remaining balance at or below which stakeholders are warned.
const DefaultWarningThreshold int64 = 15

// Mode is the kind of limit mutation.
type Mode string

// Mutation modes.
const (
	// ModeSet replaces the limit and resets the used counter.
	ModeSet Mode = "set"
	// ModeAdd grows the limit and keeps the used counter.
	ModeAdd Mode = "add"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == ModeSet || m == ModeAdd
}

// Quota is a point-in-time snapshot of a project's counters.
type Quota struct {
	limit       int64
	used        int64
	warningSent bool
}

// New creates a Quota snapshot.
func New(limit, used int64, warningSent bool) Quota {
	return Quota{limit: limit, used: used, warningSent: warningSent}
}

// Limit returns the total allowance.
func (q Quota) Limit() int64 { return q.limit }

// Used returns the consumed amount.
func (q Quota) Used() int64 { return q.used }

// WarningSent reports whether a low-balance warning is outstanding.
func (q Quota) WarningSent() bool { return q.warningSent }

// Remaining returns limit minus used, floored at zero.
func (q Quota) Remaining() int64 {
	return Remaining(q.limit, q.used)
}

// Remaining returns max(0, limit-used).
func Remaining(limit, used int64) int64 {
	if r := limit - used; r > 0 {
		return r
	}
	return 0
}

// Policy holds the warning-flag hysteresis rules.
type Policy struct {
	Threshold int64
}

// NewPolicy creates a Policy. Non-positive thresholds fall back to DefaultWarningThreshold.
func NewPolicy(threshold int64) Policy {
	if threshold <= 0 {
		threshold = DefaultWarningThreshold
	}
	return Policy{Threshold: threshold}
}

// ShouldWarn reports whether the snapshot crosses into the low-balance band
// without an outstanding warning. An empty balance is silent.
func (p Policy) ShouldWarn(q Quota) bool {
	r := q.Remaining()
	return r > 0 && r <= p.Threshold && !q.warningSent
}

// ShouldClear reports whether an outstanding warning is obsolete.
func (p Policy) ShouldClear(q Quota) bool {
	return q.Remaining() > p.Threshold && q.warningSent
}

// ClearsAfterSet reports whether setting the limit to value resets the warning flag.
// Only growth above the threshold clears it; small limits are left to the monitor.
func (p Policy) ClearsAfterSet(value int64) bool {
	return value > p.Threshold
}

// ClearsAfterAdd reports whether the balance after an add resets the warning flag.
func (p Policy) ClearsAfterAdd(newLimit, used int64) bool {
	return newLimit-used > p.Threshold
}
