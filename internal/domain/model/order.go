package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 未発送の初期値
const ShippingStatusNotShipped = "NOT_SHIPPED"

// 注文。明細はチェックアウト時に確定し、その後は不変。
// total_amount は確定時に計算した請求額で、後から明細から再計算しない。
type Order struct {
	ID     int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Number string `gorm:"type:varchar(36);not null;uniqueIndex" json:"number"`
	UserID int64  `gorm:"not null;index" json:"user_id"`

	//注文ステータス（order_statusesへのFK）。作成後も管理側が変更できる
	StatusID int64 `gorm:"not null;index" json:"status_id"`

	TotalAmount decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"total_amount"`

	//配送状況と最終変更時刻
	ShippingStatus    string    `gorm:"type:varchar(50);not null" json:"shipping_status"`
	ShippingUpdatedAt time.Time `gorm:"not null" json:"shipping_updated_at"`

	//確定時点の配送先スナップショット
	Country string `gorm:"type:varchar(100)" json:"country"`
	City    string `gorm:"type:varchar(255)" json:"city"`
	Address string `gorm:"type:varchar(255)" json:"address"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
