package model

import "time"

// カートは1ユーザーにつき1つ（user_idの一意制約が同時作成の裁定役）。
// チェックアウト成功で明細が消えるだけで、カート行自体は削除しない。
type Cart struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex" json:"user_id"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
