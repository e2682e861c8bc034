package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"
)

type cartFixture struct {
	carts     *CartRepoMock
	cartItems *CartItemRepoMock
	products  *ProductRepoMock
	users     *UserRepoMock
	uc        *usecase.CartUsecase
}

func newCartFixture() *cartFixture {
	f := &cartFixture{
		carts:     &CartRepoMock{},
		cartItems: &CartItemRepoMock{},
		products:  &ProductRepoMock{},
		users:     &UserRepoMock{},
	}
	f.uc = usecase.NewCartUsecase(f.carts, f.cartItems, f.products, f.users)
	return f
}

func (f *cartFixture) givenUserAndCart() {
	f.users.On("FindByID", mock.Anything, int64(1)).Return(model.User{ID: 1, IsActive: true}, nil)
	f.carts.On("GetOrCreateByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10, UserID: 1}, nil)
}

func TestGetCart_EmptyCartForNewUser(t *testing.T) {
	f := newCartFixture()
	f.givenUserAndCart()
	f.cartItems.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{}, nil)

	out, err := f.uc.GetCart(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, int64(10), out.ID)
	assert.Empty(t, out.Items)
	assert.Equal(t, int64(0), out.TotalQuantity)
	assert.True(t, out.TotalAmount.IsZero())
}

func TestGetCart_UserNotFound(t *testing.T) {
	f := newCartFixture()
	f.users.On("FindByID", mock.Anything, int64(99)).Return(model.User{}, repo.ErrNotFound)

	_, err := f.uc.GetCart(context.Background(), 99)

	assertHTTPError(t, err, http.StatusNotFound, "user not found")
	f.carts.AssertNotCalled(t, "GetOrCreateByUserID", mock.Anything, mock.Anything)
}

func TestAddToCart_SnapshotsCatalogPrice(t *testing.T) {
	f := newCartFixture()
	f.givenUserAndCart()

	price := mustDec(t, "19.99")
	f.products.On("FindByID", mock.Anything, int64(7)).Return(model.Product{
		ID: 7, Name: "Кружка", Price: price, IsActive: true,
	}, nil)

	// 単価はカタログの現在価格がそのまま渡る
	f.cartItems.On("UpsertByCartAndProduct", mock.Anything, int64(10), int64(7), int64(3), decEq(price)).
		Return(nil)
	f.cartItems.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{
		{ID: 1, CartID: 10, ProductID: 7, Quantity: 3, UnitPrice: price},
	}, nil)

	out, err := f.uc.AddToCart(context.Background(), 1, usecase.AddCartInput{ProductID: 7, Quantity: 3})
	require.NoError(t, err)

	require.Len(t, out.Items, 1)
	assert.Equal(t, "Кружка", out.Items[0].Name)
	assert.Equal(t, int64(3), out.TotalQuantity)
	assert.Equal(t, "59.97", out.TotalAmount.StringFixed(2))
	f.cartItems.AssertExpectations(t)
}

func TestAddToCart_InvalidInput(t *testing.T) {
	f := newCartFixture()

	_, err := f.uc.AddToCart(context.Background(), 1, usecase.AddCartInput{ProductID: 0, Quantity: 1})
	assertHTTPError(t, err, http.StatusBadRequest, "invalid product_id")

	_, err = f.uc.AddToCart(context.Background(), 1, usecase.AddCartInput{ProductID: 7, Quantity: 0})
	assertHTTPError(t, err, http.StatusBadRequest, "invalid quantity")

	f.cartItems.AssertNotCalled(t, "UpsertByCartAndProduct",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAddToCart_ProductNotFound(t *testing.T) {
	f := newCartFixture()
	f.givenUserAndCart()
	f.products.On("FindByID", mock.Anything, int64(7)).Return(model.Product{}, repo.ErrNotFound)

	_, err := f.uc.AddToCart(context.Background(), 1, usecase.AddCartInput{ProductID: 7, Quantity: 1})

	assertHTTPError(t, err, http.StatusNotFound, "product not found")
	f.cartItems.AssertNotCalled(t, "UpsertByCartAndProduct",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAddToCart_InactiveProductRejected(t *testing.T) {
	f := newCartFixture()
	f.givenUserAndCart()
	f.products.On("FindByID", mock.Anything, int64(7)).Return(model.Product{
		ID: 7, Name: "Кружка", Price: mustDec(t, "19.99"), IsActive: false,
	}, nil)

	_, err := f.uc.AddToCart(context.Background(), 1, usecase.AddCartInput{ProductID: 7, Quantity: 1})

	assertHTTPError(t, err, http.StatusNotFound, "product not found")
}

func TestUpdateCartItem_NotOwned(t *testing.T) {
	f := newCartFixture()
	f.cartItems.On("IsOwnedByUser", mock.Anything, int64(5), int64(1)).Return(false, nil)

	// 他人の明細は「存在しない扱い」
	_, err := f.uc.UpdateCartItem(context.Background(), 1, 5, usecase.UpdateCartItemInput{Quantity: 2})

	assertHTTPError(t, err, http.StatusNotFound, "not found")
	f.cartItems.AssertNotCalled(t, "UpdateQuantity", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateCartItem_InvalidQuantity(t *testing.T) {
	f := newCartFixture()

	_, err := f.uc.UpdateCartItem(context.Background(), 1, 5, usecase.UpdateCartItemInput{Quantity: 0})

	assertHTTPError(t, err, http.StatusBadRequest, "invalid quantity")
}

func TestUpdateCartItem_Success(t *testing.T) {
	f := newCartFixture()
	price := mustDec(t, "100.00")

	f.cartItems.On("IsOwnedByUser", mock.Anything, int64(5), int64(1)).Return(true, nil)
	f.cartItems.On("UpdateQuantity", mock.Anything, int64(5), int64(4)).Return(nil)
	f.carts.On("FindByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10, UserID: 1}, nil)
	f.cartItems.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{
		{ID: 5, CartID: 10, ProductID: 100, Quantity: 4, UnitPrice: price},
	}, nil)
	f.products.On("FindByID", mock.Anything, int64(100)).Return(model.Product{
		ID: 100, Name: "Чайник", Price: price, IsActive: true,
	}, nil)

	out, err := f.uc.UpdateCartItem(context.Background(), 1, 5, usecase.UpdateCartItemInput{Quantity: 4})
	require.NoError(t, err)

	assert.Equal(t, int64(4), out.TotalQuantity)
	assert.Equal(t, "400.00", out.TotalAmount.StringFixed(2))
}

func TestDeleteCartItem_Success(t *testing.T) {
	f := newCartFixture()

	f.cartItems.On("IsOwnedByUser", mock.Anything, int64(5), int64(1)).Return(true, nil)
	f.cartItems.On("DeleteByID", mock.Anything, int64(5)).Return(nil)
	f.carts.On("FindByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10, UserID: 1}, nil)
	f.cartItems.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{}, nil)

	out, err := f.uc.DeleteCartItem(context.Background(), 1, 5)
	require.NoError(t, err)

	assert.Empty(t, out.Items)
	assert.True(t, out.TotalAmount.IsZero())
}

func TestDeleteCartItem_NotOwned(t *testing.T) {
	f := newCartFixture()
	f.cartItems.On("IsOwnedByUser", mock.Anything, int64(5), int64(2)).Return(false, nil)

	_, err := f.uc.DeleteCartItem(context.Background(), 2, 5)

	assertHTTPError(t, err, http.StatusNotFound, "not found")
	f.cartItems.AssertNotCalled(t, "DeleteByID", mock.Anything, mock.Anything)
}

// 商品が消えても明細と金額は表示に残る（合計の整合を優先）
func TestGetCart_VanishedProductKeepsLineAndTotal(t *testing.T) {
	f := newCartFixture()
	f.givenUserAndCart()

	f.cartItems.On("ListByCartID", mock.Anything, int64(10)).Return([]model.CartItem{
		{ID: 1, CartID: 10, ProductID: 100, Quantity: 2, UnitPrice: mustDec(t, "100.00")},
	}, nil)
	f.products.On("FindByID", mock.Anything, int64(100)).Return(model.Product{}, repo.ErrNotFound)

	out, err := f.uc.GetCart(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, out.Items, 1)
	assert.Equal(t, "", out.Items[0].Name)
	assert.Equal(t, "200.00", out.TotalAmount.StringFixed(2))
}
