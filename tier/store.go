package tier

import (
	"context"

	"github.com/xraph/adscore/id"
)

type Store interface {
	Create(ctx context.Context, t *Tier) error
	Get(ctx context.Context, tierID id.TierID) (*Tier, error)
	GetByKey(ctx context.Context, key string, appID string) (*Tier, error)
	List(ctx context.Context, appID string, opts ListOpts) ([]*Tier, error)
	Update(ctx context.Context, t *Tier) error
	Archive(ctx context.Context, tierID id.TierID) error
}

type ListOpts struct {
	Status Status
	Limit  int
	Offset int
}
