package repository

import (
	"context"

	"app/internal/domain/model"
)

// 注文明細の保存・参照。明細は注文確定時に一括作成され、その後は読み取りのみ。
type OrderItemRepository interface {
	//注文の明細をまとめて作成する（チェックアウトTx内で使う）
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error

	//注文の明細を一覧取得する
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
}
