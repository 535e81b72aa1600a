package promo_test

import (
	"testing"
	"time"

	"github.com/xraph/adscore/promo"
)

func TestRedeemable(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		p    promo.Promo
		want bool
	}{
		{
			name: "no constraints",
			p:    promo.Promo{Credits: 10},
			want: true,
		},
		{
			name: "inside window",
			p:    promo.Promo{ValidFrom: &past, ValidUntil: &future},
			want: true,
		},
		{
			name: "not yet valid",
			p:    promo.Promo{ValidFrom: &future},
			want: false,
		},
		{
			name: "expired",
			p:    promo.Promo{ValidUntil: &past},
			want: false,
		},
		{
			name: "under redemption cap",
			p:    promo.Promo{MaxRedemptions: 5, TimesRedeemed: 4},
			want: true,
		},
		{
			name: "cap reached",
			p:    promo.Promo{MaxRedemptions: 5, TimesRedeemed: 5},
			want: false,
		},
		{
			name: "zero cap means uncapped",
			p:    promo.Promo{TimesRedeemed: 1000},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Redeemable(now); got != tt.want {
				t.Errorf("Redeemable() = %v, want %v", got, tt.want)
			}
		})
	}
}
