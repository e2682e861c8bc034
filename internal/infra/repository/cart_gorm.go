package repository

import (
	"app/internal/domain/model"
	repo "app/internal/repository"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// 一意制約違反かどうかを判定する。
// Postgresは SQLSTATE 23505、テストで使うsqliteはメッセージで判定する。
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ユーザーのカートを取得し、無ければ作成。
// 同時に2リクエストが作成を試みても、負けた側は一意制約違反を検知して
// 既存行を読み直す。呼び出し側にエラーは返さない（upsertはしない）。
func (r *CartGormRepository) GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	var cart model.Cart

	findErr := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&cart).Error
	if findErr == nil {
		return cart, nil
	}
	if !errors.Is(findErr, gorm.ErrRecordNotFound) {
		return model.Cart{}, findErr
	}

	// 無ければ作る
	now := time.Now()
	newCart := model.Cart{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	createErr := r.db.WithContext(ctx).Create(&newCart).Error
	if createErr == nil {
		return newCart, nil
	}

	//負けた側：先に入った行を読み直す
	if isUniqueViolation(createErr) {
		retryErr := r.db.WithContext(ctx).
			Where("user_id = ?", userID).
			First(&cart).Error
		if retryErr == nil {
			return cart, nil
		}
	}
	return model.Cart{}, createErr
}

// ユーザーのカートを取得
func (r *CartGormRepository) FindByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&cart).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Cart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

// チェックアウトが読んだスナップショットの明細だけを消す。カート行は残す。
// 読んだ後に数量が変わった・消えた明細が1つでもあれば件数不一致で
// ErrCartConflictを返し、呼び出し側のTxごとロールバックさせる。
// cart_idで全削除すると、読みとコミットの間に入った並行addItemを
// 注文に含めないまま黙って消してしまう。
func (r *CartGormRepository) DeleteExact(ctx context.Context, cartID int64, items []model.CartItem) error {
	for _, it := range items {
		res := r.db.WithContext(ctx).
			Where("id = ? AND cart_id = ? AND quantity = ?", it.ID, cartID, it.Quantity).
			Delete(&model.CartItem{})

		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return repo.ErrCartConflict
		}
	}
	return nil
}

// updated_atだけを進める
func (r *CartGormRepository) Touch(ctx context.Context, cartID int64, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ?", cartID).
		Update("updated_at", at)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// カート明細を一覧取得
func (r *CartGormRepository) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	var items []model.CartItem

	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.CartItem{}, err
	}

	return items, nil
}

// 同一商品は数量加算。(cart_id, product_id)の一意制約が裁定役で、
// 新規作成が競合したら加算に切り替える。
func (r *CartGormRepository) UpsertByCartAndProduct(ctx context.Context, cartID int64, productID int64, addQty int64, unitPrice decimal.Decimal) error {

	if addQty <= 0 {
		return errors.New("invalid quantity")
	}

	var item model.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).Error

	if err == nil {
		// 既存ありだったら数量を増やす
		return r.addQuantity(ctx, cartID, productID, addQty)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	//無い場合は新規作成
	now := time.Now()
	newItem := model.CartItem{
		CartID:    cartID,
		ProductID: productID,
		Quantity:  addQty,
		UnitPrice: unitPrice,
		CreatedAt: now,
		UpdatedAt: now,
	}

	createErr := r.db.WithContext(ctx).Create(&newItem).Error
	if createErr == nil {
		return nil
	}

	//同時に同じ商品が追加された場合は加算に切り替える
	if isUniqueViolation(createErr) {
		return r.addQuantity(ctx, cartID, productID, addQty)
	}
	return createErr
}

func (r *CartGormRepository) addQuantity(ctx context.Context, cartID int64, productID int64, addQty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Update("quantity", gorm.Expr("quantity + ?", addQty))

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 明細の数量を更新
func (r *CartGormRepository) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("id = ?", cartItemID).
		Update("quantity", qty)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 明細を削除
func (r *CartGormRepository) DeleteByID(ctx context.Context, cartItemID int64) error {
	res := r.db.WithContext(ctx).Delete(&model.CartItem{}, cartItemID)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 明細を取得
func (r *CartGormRepository) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	var item model.CartItem

	err := r.db.WithContext(ctx).
		Where("id = ?", cartItemID).
		First(&item).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.CartItem{}, repo.ErrNotFound
	}
	if err != nil {
		return model.CartItem{}, err
	}
	return item, nil
}

//cartItemが、そのuserのカートに属しているかを判定

func (r *CartGormRepository) IsOwnedByUser(ctx context.Context, cartItemID int64, userID int64) (bool, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Table("cart_items").
		Joins("join carts on carts.id = cart_items.cart_id").
		Where("cart_items.id = ? AND carts.user_id = ?", cartItemID, userID).
		Count(&count).Error

	if err != nil {
		return false, err
	}

	return count > 0, nil
}
