// Package promo models promotional codes that grant bonus credits.
package promo

import (
	"time"

	"github.com/xraph/adscore/id"
	"github.com/xraph/adscore/types"
)

type Promo struct {
	types.Entity
	ID             id.PromoID        `json:"id"`
	Code           string            `json:"code"`
	Name           string            `json:"name"`
	Credits        types.Credits     `json:"credits"`
	MaxRedemptions int               `json:"max_redemptions"`
	TimesRedeemed  int               `json:"times_redeemed"`
	ValidFrom      *time.Time        `json:"valid_from,omitempty"`
	ValidUntil     *time.Time        `json:"valid_until,omitempty"`
	AppID          string            `json:"app_id"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Redeemable reports whether the code can be redeemed at now. A zero
// MaxRedemptions means no cap.
func (p *Promo) Redeemable(now time.Time) bool {
	if p.ValidFrom != nil && now.Before(*p.ValidFrom) {
		return false
	}
	if p.ValidUntil != nil && now.After(*p.ValidUntil) {
		return false
	}
	if p.MaxRedemptions > 0 && p.TimesRedeemed >= p.MaxRedemptions {
		return false
	}
	return true
}
