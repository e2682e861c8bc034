package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"
)

// 実DB（sqlite）で repo と usecase を繋いだチェックアウト一連の確認。
type checkoutWorld struct {
	db       *gorm.DB
	carts    *CartGormRepository
	products *ProductGormRepository
	uc       *usecase.CheckoutUsecase
}

func newCheckoutWorld(t *testing.T) *checkoutWorld {
	t.Helper()
	db := setupTestDB(t)

	carts := NewCartGormRepository(db)
	products := NewProductGormRepository(db)
	users := NewUserGormRepository(db)
	statuses := NewOrderStatusGormRepository(db)

	require.NoError(t, statuses.Seed(context.Background(), model.DefaultOrderStatuses))

	uc := usecase.NewCheckoutUsecase(
		NewTxManagerGorm(db),
		carts, carts, products, users, statuses,
		"Россия", nil, nil,
	)
	return &checkoutWorld{db: db, carts: carts, products: products, uc: uc}
}

func (w *checkoutWorld) givenUser(t *testing.T, email string, country string, city string, address string) model.User {
	t.Helper()
	u := model.User{
		Email:        email,
		PasswordHash: "x",
		Role:         model.RoleUser,
		Country:      country,
		City:         city,
		Address:      address,
		IsActive:     true,
	}
	require.NoError(t, w.db.Create(&u).Error)
	return u
}

func (w *checkoutWorld) givenProduct(t *testing.T, name string, price string) model.Product {
	t.Helper()
	p := model.Product{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		IsActive: true,
	}
	require.NoError(t, w.db.Create(&p).Error)
	return p
}

func (w *checkoutWorld) fillCart(t *testing.T, userID int64, lines map[int64]int64) model.Cart {
	t.Helper()
	ctx := context.Background()
	cart, err := w.carts.GetOrCreateByUserID(ctx, userID)
	require.NoError(t, err)
	for productID, qty := range lines {
		p, err := w.products.FindByID(ctx, productID)
		require.NoError(t, err)
		require.NoError(t, w.carts.UpsertByCartAndProduct(ctx, cart.ID, productID, qty, p.Price))
	}
	return cart
}

func TestCheckoutFlow_Success(t *testing.T) {
	w := newCheckoutWorld(t)
	ctx := context.Background()

	user := w.givenUser(t, "ivan@example.com", "россия", "Москва", "ул. Ленина, 1")
	teapot := w.givenProduct(t, "Чайник", "100.00")
	mug := w.givenProduct(t, "Кружка", "50.00")
	cart := w.fillCart(t, user.ID, map[int64]int64{teapot.ID: 2, mug.ID: 1})

	out, err := w.uc.Checkout(ctx, user.ID)
	require.NoError(t, err)

	// 2×100.00 + 1×50.00 = 250.00
	assert.Equal(t, "250.00", out.TotalAmount.StringFixed(2))
	assert.Equal(t, model.ShippingStatusNotShipped, out.ShippingStatus)
	assert.NotEmpty(t, out.Number)

	// 注文と明細が永続化され、カート明細は消えてカート行は残る
	var order model.Order
	require.NoError(t, w.db.First(&order, out.OrderID).Error)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("250.00")))
	assert.Equal(t, "россия", order.Country)
	assert.Equal(t, "Москва", order.City)

	assert.Equal(t, int64(2), countRows(t, w.db, &model.OrderItem{}))

	items, err := w.carts.ListByCartID(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, int64(1), countRows(t, w.db, &model.Cart{}))

	// 空になったカートで再実行すると業務エラー
	_, err = w.uc.Checkout(ctx, user.ID)
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, "cart empty", he.Message)
}

func TestCheckoutFlow_UnsupportedCountryLeavesCartIntact(t *testing.T) {
	w := newCheckoutWorld(t)
	ctx := context.Background()

	user := w.givenUser(t, "alesia@example.com", "Беларусь", "Минск", "пр. Независимости, 4")
	teapot := w.givenProduct(t, "Чайник", "100.00")
	cart := w.fillCart(t, user.ID, map[int64]int64{teapot.ID: 2})

	_, err := w.uc.Checkout(ctx, user.ID)

	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, "shipping country not supported", he.Message)

	// 拒否してもカートは無傷、注文は作られない
	items, err := w.carts.ListByCartID(ctx, cart.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int64(0), countRows(t, w.db, &model.Order{}))
}

func TestCheckoutFlow_DeletedProductAborts(t *testing.T) {
	w := newCheckoutWorld(t)
	ctx := context.Background()

	user := w.givenUser(t, "ivan@example.com", "Россия", "Москва", "ул. Ленина, 1")
	teapot := w.givenProduct(t, "Чайник", "100.00")
	cart := w.fillCart(t, user.ID, map[int64]int64{teapot.ID: 1})

	// カート投入後に商品が消える（soft delete）
	require.NoError(t, w.db.Delete(&model.Product{}, teapot.ID).Error)

	_, err := w.uc.Checkout(ctx, user.ID)

	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, "items no longer available", he.Message)

	// 明細は消費されず残る
	items, err := w.carts.ListByCartID(ctx, cart.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int64(0), countRows(t, w.db, &model.Order{}))
}

// 読みとコミットの間に別商品のaddItemが割り込むケース。
// 割り込んだ明細は注文に入らず、消されもせず、カートに残る（＝完全に後着扱い）。
func TestCheckoutFlow_ConcurrentAddSurvivesCheckout(t *testing.T) {
	w := newCheckoutWorld(t)
	tm := NewTxManagerGorm(w.db)
	ctx := context.Background()

	user := w.givenUser(t, "ivan@example.com", "Россия", "Москва", "ул. Ленина, 1")
	teapot := w.givenProduct(t, "Чайник", "100.00")
	mug := w.givenProduct(t, "Кружка", "50.00")
	cart := w.fillCart(t, user.ID, map[int64]int64{teapot.ID: 1})

	// チェックアウトが読むスナップショット
	snapshot, err := w.carts.ListByCartID(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, snapshot, 1)

	// 読みの直後に別商品が追加コミットされる
	require.NoError(t, w.carts.UpsertByCartAndProduct(ctx, cart.ID, mug.ID, 1, decimal.RequireFromString("50.00")))

	// チェックアウトの書き込み区間をスナップショットで実行
	err = tm.WithinTx(ctx, func(r repo.TxRepos) error {
		id, err := r.Orders().Create(ctx, model.Order{
			Number:            "n-race-1",
			UserID:            user.ID,
			StatusID:          1,
			TotalAmount:       decimal.RequireFromString("100.00"),
			ShippingStatus:    model.ShippingStatusNotShipped,
			ShippingUpdatedAt: time.Now(),
		})
		if err != nil {
			return err
		}
		if err := r.OrderItems().CreateBulk(ctx, id, []model.OrderItem{
			{ProductID: teapot.ID, ProductNameSnapshot: "Чайник", UnitPriceSnapshot: decimal.RequireFromString("100.00"), Quantity: 1},
		}); err != nil {
			return err
		}
		return r.CartItems().DeleteExact(ctx, cart.ID, snapshot)
	})
	require.NoError(t, err)

	// 注文はスナップショットの1明細だけ
	assert.Equal(t, int64(1), countRows(t, w.db, &model.Order{}))
	assert.Equal(t, int64(1), countRows(t, w.db, &model.OrderItem{}))

	// 割り込んだ明細はカートに無傷で残る
	left, err := w.carts.ListByCartID(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, mug.ID, left[0].ProductID)
	assert.Equal(t, int64(1), left[0].Quantity)
}

// 読んだ明細そのものの数量が動いた場合は、Txごと失敗して全量やり直し。
// 加算された数量が注文に入らないまま消えることはない（＝完全に先着扱い）。
func TestCheckoutFlow_ConcurrentBumpAbortsCheckout(t *testing.T) {
	w := newCheckoutWorld(t)
	tm := NewTxManagerGorm(w.db)
	ctx := context.Background()

	user := w.givenUser(t, "ivan@example.com", "Россия", "Москва", "ул. Ленина, 1")
	teapot := w.givenProduct(t, "Чайник", "100.00")
	cart := w.fillCart(t, user.ID, map[int64]int64{teapot.ID: 1})

	snapshot, err := w.carts.ListByCartID(ctx, cart.ID)
	require.NoError(t, err)

	// 読みの直後に同じ商品が加算される
	require.NoError(t, w.carts.UpsertByCartAndProduct(ctx, cart.ID, teapot.ID, 2, decimal.RequireFromString("100.00")))

	err = tm.WithinTx(ctx, func(r repo.TxRepos) error {
		id, err := r.Orders().Create(ctx, model.Order{
			Number:            "n-race-2",
			UserID:            user.ID,
			StatusID:          1,
			TotalAmount:       decimal.RequireFromString("100.00"),
			ShippingStatus:    model.ShippingStatusNotShipped,
			ShippingUpdatedAt: time.Now(),
		})
		if err != nil {
			return err
		}
		if err := r.OrderItems().CreateBulk(ctx, id, []model.OrderItem{
			{ProductID: teapot.ID, ProductNameSnapshot: "Чайник", UnitPriceSnapshot: decimal.RequireFromString("100.00"), Quantity: 1},
		}); err != nil {
			return err
		}
		return r.CartItems().DeleteExact(ctx, cart.ID, snapshot)
	})
	require.ErrorIs(t, err, repo.ErrCartConflict)

	// 全ロールバック：注文は作られず、加算後の明細がそのまま残る
	assert.Equal(t, int64(0), countRows(t, w.db, &model.Order{}))
	assert.Equal(t, int64(0), countRows(t, w.db, &model.OrderItem{}))

	left, err := w.carts.ListByCartID(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, int64(3), left[0].Quantity)
}

func TestCheckoutFlow_PriceSnapshotSurvivesCatalogChange(t *testing.T) {
	w := newCheckoutWorld(t)
	ctx := context.Background()

	user := w.givenUser(t, "ivan@example.com", "Россия", "Москва", "ул. Ленина, 1")
	teapot := w.givenProduct(t, "Чайник", "100.00")
	w.fillCart(t, user.ID, map[int64]int64{teapot.ID: 2})

	// カート投入後に値上げ。請求はカートで見た単価のまま
	require.NoError(t, w.db.Model(&model.Product{}).
		Where("id = ?", teapot.ID).
		Update("price", decimal.RequireFromString("999.00")).Error)

	out, err := w.uc.Checkout(ctx, user.ID)
	require.NoError(t, err)

	assert.Equal(t, "200.00", out.TotalAmount.StringFixed(2))

	orderItems := NewOrderItemGormRepository(w.db)
	items, err := orderItems.ListByOrderID(ctx, out.OrderID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].UnitPriceSnapshot.Equal(decimal.RequireFromString("100.00")))
}
