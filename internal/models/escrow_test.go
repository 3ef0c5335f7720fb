package models

import "testing"

func TestIsValidEscrowTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		// Happy path
		{EscrowStatusPending, EscrowStatusConfirmed, true},
		{EscrowStatusPending, EscrowStatusRejected, true},

		// Terminal states are frozen
		{EscrowStatusConfirmed, EscrowStatusRejected, false},
		{EscrowStatusConfirmed, EscrowStatusPending, false},
		{EscrowStatusConfirmed, EscrowStatusConfirmed, false},
		{EscrowStatusRejected, EscrowStatusConfirmed, false},
		{EscrowStatusRejected, EscrowStatusPending, false},

		// No self-loop, no unknown states
		{EscrowStatusPending, EscrowStatusPending, false},
		{"nonexistent", EscrowStatusConfirmed, false},
		{EscrowStatusPending, "nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidEscrowTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidEscrowTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestTerminalEscrowStatuses(t *testing.T) {
	if IsTerminalEscrowStatus(EscrowStatusPending) {
		t.Error("pending must not be terminal")
	}
	for _, status := range []string{EscrowStatusConfirmed, EscrowStatusRejected} {
		if !IsTerminalEscrowStatus(status) {
			t.Errorf("status %q should be terminal", status)
		}
	}
	if IsTerminalEscrowStatus("nonexistent") {
		t.Error("unknown status must not report terminal")
	}
}

func TestIsValidPaymentType(t *testing.T) {
	for _, pt := range []string{PaymentTypeNative, PaymentTypeToken} {
		if !IsValidPaymentType(pt) {
			t.Errorf("payment type %q should be valid", pt)
		}
	}
	if IsValidPaymentType("card") {
		t.Error("unknown payment type accepted")
	}
}
