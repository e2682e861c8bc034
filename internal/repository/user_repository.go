package repository

import (
	"app/internal/domain/model"
	"context"
)

// id→配送先（国・市・住所）の解決役。
type UserRepository interface {
	// IDからユーザーを1件取得する。
	FindByID(ctx context.Context, userID int64) (model.User, error)
	//メールからユーザーを一件取得する。
	FindByEmail(ctx context.Context, email string) (model.User, error)
}
