package statement

import (
	"context"
	"time"

	"github.com/xraph/adscore/id"
)

type Store interface {
	Create(ctx context.Context, s *Statement) error
	Get(ctx context.Context, stmtID id.StatementID) (*Statement, error)
	List(ctx context.Context, accountID, appID string, opts ListOpts) ([]*Statement, error)
	GetByPeriod(ctx context.Context, accountID, appID string, periodStart, periodEnd time.Time) (*Statement, error)
}

type ListOpts struct {
	Start  time.Time
	End    time.Time
	Limit  int
	Offset int
}
