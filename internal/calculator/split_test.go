package calculator

import (
	"math"
	"testing"
)

func TestSplitEvenly(t *testing.T) {
	tests := []struct {
		name         string
		amount       float64
		participants []string
		wantErr      bool
		want         map[string]float64
	}{
		{
			name:         "even two-way split",
			amount:       30.0,
			participants: []string{"alice", "bob"},
			want:         map[string]float64{"alice": 15.0, "bob": 15.0},
		},
		{
			name:         "remainder cents go to first participants",
			amount:       10.0,
			participants: []string{"alice", "bob", "carol"},
			want:         map[string]float64{"alice": 3.34, "bob": 3.33, "carol": 3.33},
		},
		{
			name:         "duplicates are counted once",
			amount:       20.0,
			participants: []string{"alice", "bob", "alice"},
			want:         map[string]float64{"alice": 10.0, "bob": 10.0},
		},
		{
			name:         "single participant pays everything",
			amount:       7.25,
			participants: []string{"alice"},
			want:         map[string]float64{"alice": 7.25},
		},
		{
			name:         "zero amount should error",
			amount:       0,
			participants: []string{"alice"},
			wantErr:      true,
		},
		{
			name:         "no participants should error",
			amount:       10,
			participants: []string{},
			wantErr:      true,
		},
		{
			name:         "under one cent should error",
			amount:       0.001,
			participants: []string{"alice", "bob"},
			wantErr:      true,
		},
		{
			name:         "amount past exact cents should error",
			amount:       1e17,
			participants: []string{"alice", "bob"},
			wantErr:      true,
		},
		{
			name:         "huge amount should error",
			amount:       1e300,
			participants: []string{"alice"},
			wantErr:      true,
		},
		{
			name:         "NaN should error",
			amount:       math.NaN(),
			participants: []string{"alice"},
			wantErr:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := SplitEvenly(tt.amount, tt.participants)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SplitEvenly() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			if len(shares) != len(tt.want) {
				t.Fatalf("got %d shares, want %d", len(shares), len(tt.want))
			}
			var sum float64
			for p, want := range tt.want {
				if math.Abs(shares[p]-want) > 0.001 {
					t.Errorf("%s share = %v, want %v", p, shares[p], want)
				}
				sum += shares[p]
			}
			if math.Abs(sum-tt.amount) > 0.001 {
				t.Errorf("shares sum to %v, want %v", sum, tt.amount)
			}
		})
	}
}
