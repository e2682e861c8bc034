package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"app/internal/domain/model"
)

// DeleteExactが、読んだ時点と明細が食い違っていたときに返す。
var ErrCartConflict = errors.New("cart conflict")

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	// 同一商品はプラス
	UpsertByCartAndProduct(ctx context.Context, cartID int64, productID int64, addQty int64, unitPrice decimal.Decimal) error
	UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error
	DeleteByID(ctx context.Context, cartItemID int64) error
	// 渡した明細（id・数量の組）だけを消す。消えていたり数量が
	// 変わっていたらErrCartConflictを返す（チェックアウトTx用）
	DeleteExact(ctx context.Context, cartID int64, items []model.CartItem) error
	FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error)
	IsOwnedByUser(ctx context.Context, cartItemID int64, userID int64) (bool, error)
}
