package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type CartRepository interface {
	// 無ければ作る。同時作成の競合は一意制約違反を検知して読み直す
	GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error)
	FindByUserID(ctx context.Context, userID int64) (model.Cart, error)
	// updated_atだけを進める
	Touch(ctx context.Context, cartID int64, at time.Time) error
}
