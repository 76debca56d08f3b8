package idhash

import "testing"

func TestComputeLaunchID(t *testing.T) {
	tests := []struct {
		name       string
		tokenID    string
		detectedAt int64
	}{
		{name: "typical", tokenID: "abc123", detectedAt: 1735689600000},
		{name: "zero timestamp", tokenID: "abc123", detectedAt: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeLaunchID(tt.tokenID, tt.detectedAt)
			if len(got) != 64 {
				t.Errorf("ComputeLaunchID() length = %d, want 64", len(got))
			}

			// Deterministic: same input, same output
			again := ComputeLaunchID(tt.tokenID, tt.detectedAt)
			if got != again {
				t.Errorf("ComputeLaunchID() not deterministic: %s != %s", got, again)
			}
		})
	}
}

func TestComputeLaunchID_Uniqueness(t *testing.T) {
	a := ComputeLaunchID("token-a", 1000)
	b := ComputeLaunchID("token-a", 2000)
	c := ComputeLaunchID("token-b", 1000)

	if a == b {
		t.Error("different detection times should produce different IDs")
	}
	if a == c {
		t.Error("different tokens should produce different IDs")
	}
}

func TestComputeTradeID(t *testing.T) {
	got := ComputeTradeID("pf-1", "launch-1", "token-1", 1735689600000)
	if len(got) != 64 {
		t.Errorf("ComputeTradeID() length = %d, want 64", len(got))
	}

	other := ComputeTradeID("pf-2", "launch-1", "token-1", 1735689600000)
	if got == other {
		t.Error("different portfolios should produce different trade IDs")
	}
}

func TestComputeTokenID(t *testing.T) {
	a := ComputeTokenID("pair-addr-1", "WOOF")
	b := ComputeTokenID("pair-addr-2", "WOOF")
	if len(a) != 64 {
		t.Errorf("ComputeTokenID() length = %d, want 64", len(a))
	}
	if a == b {
		t.Error("different external IDs should produce different token IDs")
	}
}
