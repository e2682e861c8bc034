package repository

import (
	"context"

	"app/internal/domain/model"
)

// 注文ステータスのレジストリ（名前→IDの解決役）。
type OrderStatusRepository interface {
	FindByName(ctx context.Context, name string) (model.OrderStatus, error)
	FindByID(ctx context.Context, id int64) (model.OrderStatus, error)
	// 足りない名前だけ作る（起動時シード用）
	Seed(ctx context.Context, names []string) error
}
