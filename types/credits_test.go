package types

import (
	"encoding/json"
	"testing"
)

func TestCreditsArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Credits
		expected Credits
	}{
		{"Add", func() Credits { return N(100).Add(N(200)) }, N(300)},
		{"Sub", func() Credits { return N(500).Sub(N(200)) }, N(300)},
		{"Sub below zero", func() Credits { return N(100).Sub(N(200)) }, N(-100)},
		{"SubFloor", func() Credits { return N(500).SubFloor(N(200)) }, N(300)},
		{"SubFloor at zero", func() Credits { return N(100).SubFloor(N(200)) }, N(0)},
		{"SubFloor exact", func() Credits { return N(100).SubFloor(N(100)) }, N(0)},
		{"MulQty", func() Credits { return N(2).MulQty(5) }, N(10)},
		{"Negate", func() Credits { return N(100).Negate() }, N(-100)},
		{"Abs positive", func() Credits { return N(100).Abs() }, N(100)},
		{"Abs negative", func() Credits { return N(-100).Abs() }, N(100)},
		{"Min", func() Credits { return N(3).Min(N(7)) }, N(3)},
		{"Max", func() Credits { return N(3).Max(N(7)) }, N(7)},
		{"Complex", func() Credits {
			return N(1000).Add(N(500)).MulQty(2).Sub(N(1000))
		}, N(2000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.op(); got != tt.expected {
				t.Errorf("got %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestCreditsComparisons(t *testing.T) {
	if !N(0).IsZero() {
		t.Error("N(0) should be zero")
	}
	if !N(5).IsPositive() {
		t.Error("N(5) should be positive")
	}
	if !N(-5).IsNegative() {
		t.Error("N(-5) should be negative")
	}
	if N(42).Int64() != 42 {
		t.Errorf("Int64: got %d, want 42", N(42).Int64())
	}
}

func TestCreditsString(t *testing.T) {
	tests := []struct {
		amount  Credits
		display string
	}{
		{N(0), "0 credits"},
		{N(1), "1 credit"},
		{N(-1), "-1 credit"},
		{N(25), "25 credits"},
		{N(-10), "-10 credits"},
	}

	for _, tt := range tests {
		t.Run(tt.display, func(t *testing.T) {
			if got := tt.amount.String(); got != tt.display {
				t.Errorf("got %q, want %q", got, tt.display)
			}
		})
	}
}

func TestCreditsSum(t *testing.T) {
	if got := Sum(); got != Zero {
		t.Errorf("empty Sum: got %d, want 0", got)
	}
	if got := Sum(N(1), N(2), N(3)); got != N(6) {
		t.Errorf("Sum: got %d, want 6", got)
	}
	if got := Sum(N(10), N(-4)); got != N(6) {
		t.Errorf("Sum with negative: got %d, want 6", got)
	}
}

func TestCreditsJSON(t *testing.T) {
	type payload struct {
		Balance Credits `json:"balance"`
	}

	data, err := json.Marshal(payload{Balance: N(42)})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"balance":42}` {
		t.Errorf("marshal: got %s", data)
	}

	var restored payload
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if restored.Balance != N(42) {
		t.Errorf("round-trip: got %d, want 42", restored.Balance)
	}
}
