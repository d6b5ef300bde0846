package quota

import "testing"

func TestRemaining_NeverNegative(t *testing.T) {
	tests := []struct {
		limit, used, want int64
	}{
		{100, 90, 10},
		{100, 100, 0},
		{100, 150, 0},
		{0, 0, 0},
		{0, 5, 0},
		{20, 0, 20},
	}
	for _, tc := range tests {
		q := New(tc.limit, tc.used, false)
		if got := q.Remaining(); got != tc.want {
			t.Errorf("Remaining(limit=%d, used=%d) = %d, want %d", tc.limit, tc.used, got, tc.want)
		}
	}
}

func TestMode_IsValid(t *testing.T) {
	if !ModeSet.IsValid() || !ModeAdd.IsValid() {
		t.Error("set and add must be valid")
	}
	if Mode("mul").IsValid() {
		t.Error("unexpected valid mode")
	}
}

func TestNewPolicy_Default(t *testing.T) {
	if p := NewPolicy(0); p.Threshold != DefaultWarningThreshold {
		t.Errorf("Threshold = %d, want %d", p.Threshold, DefaultWarningThreshold)
	}
	if p := NewPolicy(-3); p.Threshold != DefaultWarningThreshold {
		t.Errorf("Threshold = %d, want %d", p.Threshold, DefaultWarningThreshold)
	}
	if p := NewPolicy(40); p.Threshold != 40 {
		t.Errorf("Threshold = %d, want 40", p.Threshold)
	}
}

func TestPolicy_WarnAndClear(t *testing.T) {
	p := NewPolicy(15)

	tests := []struct {
		name      string
		q         Quota
		wantWarn  bool
		wantClear bool
	}{
		{"low balance, no flag", New(100, 90, false), true, false},
		{"low balance, flag set", New(100, 90, true), false, false},
		{"exactly threshold", New(15, 0, false), true, false},
		{"one above threshold, flag set", New(16, 0, true), false, true},
		{"healthy, no flag", New(100, 0, false), false, false},
		{"zero limit", New(0, 0, false), false, false},
		{"exhausted", New(10, 10, false), false, false},
		{"overdrawn with flag", New(10, 30, true), false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := p.ShouldWarn(tc.q); got != tc.wantWarn {
				t.Errorf("ShouldWarn = %v, want %v", got, tc.wantWarn)
			}
			if got := p.ShouldClear(tc.q); got != tc.wantClear {
				t.Errorf("ShouldClear = %v, want %v", got, tc.wantClear)
			}
		})
	}
}

func TestPolicy_ClearsAfterMutation(t *testing.T) {
	p := NewPolicy(15)

	if p.ClearsAfterSet(15) {
		t.Error("set to threshold must not clear")
	}
	if !p.ClearsAfterSet(16) {
		t.Error("set above threshold must clear")
	}
	if !p.ClearsAfterAdd(120, 90) {
		t.Error("add leaving 30 must clear")
	}
	if p.ClearsAfterAdd(100, 90) {
		t.Error("add leaving 10 must not clear")
	}
}
