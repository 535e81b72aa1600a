package promo

import (
	"context"
	"time"

	"github.com/xraph/adscore/id"
)

type Store interface {
	Create(ctx context.Context, p *Promo) error
	Get(ctx context.Context, code string, appID string) (*Promo, error)
	GetByID(ctx context.Context, promoID id.PromoID) (*Promo, error)
	List(ctx context.Context, appID string, opts ListOpts) ([]*Promo, error)
	Update(ctx context.Context, p *Promo) error
	Delete(ctx context.Context, promoID id.PromoID) error

	// Redeem increments TimesRedeemed for the code, but only while the
	// redemption cap and validity window hold at now. The check and the
	// increment are one atomic step so a cap of N never yields more than
	// N redemptions under contention.
	Redeem(ctx context.Context, code string, appID string, now time.Time) (*Promo, error)
}

type ListOpts struct {
	Active bool
	Limit  int
	Offset int
}
