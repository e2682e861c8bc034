package model

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// 会員。配送先（国・市・住所）はユーザー自身が持つ。
type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;not null"`
	Role         Role   `gorm:"type:varchar(20);not null;default:'USER'"`

	//配送可否判定に使う国名
	Country string `gorm:"type:varchar(100)"`

	//市区町村
	City string `gorm:"type:varchar(255)"`

	//番地など
	Address string `gorm:"type:varchar(255)"`

	IsActive  bool `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
