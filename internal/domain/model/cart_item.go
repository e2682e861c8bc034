package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// カートの明細。
// (cart_id, product_id) は一意。同一商品の追加は行を増やさず数量加算。
// unit_price は追加時点の価格スナップショット。カタログ価格の変動に影響されない。
type CartItem struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID    int64           `gorm:"not null;uniqueIndex:uniq_cart_items_cart_product" json:"cart_id"`
	ProductID int64           `gorm:"not null;uniqueIndex:uniq_cart_items_cart_product;index" json:"product_id"`
	Quantity  int64           `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(16,2);not null;column:unit_price" json:"unit_price"`
	CreatedAt time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
