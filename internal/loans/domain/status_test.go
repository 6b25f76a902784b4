package domain

import "testing"

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusDraft, StatusPending, true},
		{StatusDraft, StatusWithdrawn, true},
		{StatusDraft, StatusApproved, false},
		{StatusDraft, StatusQuery, false},
		{StatusPending, StatusQuery, true},
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusWithdrawn, true},
		{StatusPending, StatusDraft, false},
		{StatusQuery, StatusPending, true},
		{StatusQuery, StatusApproved, false},
		{StatusQuery, StatusWithdrawn, false},
		{StatusApproved, StatusPending, false},
		{StatusApproved, StatusRejected, false},
		{StatusRejected, StatusPending, false},
		{StatusWithdrawn, StatusDraft, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.allowed {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	terminal := []Status{StatusApproved, StatusRejected, StatusWithdrawn}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("expected %s to be terminal", s)
		}
		for _, target := range []Status{StatusDraft, StatusPending, StatusQuery, StatusApproved, StatusRejected, StatusWithdrawn} {
			if s.CanTransition(target) {
				t.Errorf("terminal state %s must not transition to %s", s, target)
			}
		}
	}

	for _, s := range []Status{StatusDraft, StatusPending, StatusQuery} {
		if s.IsTerminal() {
			t.Errorf("expected %s to be non-terminal", s)
		}
	}
}

func TestStatusIsDraft(t *testing.T) {
	if !StatusDraft.IsDraft() {
		t.Error("draft status must report IsDraft")
	}
	for _, s := range []Status{StatusPending, StatusQuery, StatusApproved, StatusRejected, StatusWithdrawn} {
		if s.IsDraft() {
			t.Errorf("%s must not report IsDraft", s)
		}
	}
}
