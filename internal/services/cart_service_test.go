package services_test

import (
	"context"
	"testing"

	"toko-checkout/internal/apperrors"
	"toko-checkout/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartService_GetCartCreatesEmptyCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cart, err := f.cartService.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, cart.ID)
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.TotalAmount)

	again, err := f.cartService.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, cart.ID, again.ID)
}

func TestCartService_TotalsFollowMutations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addProduct(t, "p1", 100, 10)

	cart, err := f.cartService.AddItem(ctx, "user-1", services.AddCartItemInput{ProductID: "p1", Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 200.0, cart.TotalAmount)
	assert.Equal(t, 2, cart.TotalItems)

	itemID := cart.Items[0].ID
	cart, err = f.cartService.UpdateItem(ctx, "user-1", itemID, 5)
	require.NoError(t, err)
	assert.Equal(t, 500.0, cart.TotalAmount)
	assert.Equal(t, 500.0, cart.Items[0].LineTotal)

	cart, err = f.cartService.RemoveItem(ctx, "user-1", itemID)
	require.NoError(t, err)
	assert.Zero(t, cart.TotalAmount)
	assert.Zero(t, cart.TotalItems)
	assert.Equal(t, 10, f.stock(t, "p1"), "cart never touches stock")
}

func TestCartService_AddItemReplacesQuantityForSameLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addProduct(t, "p1", 50, 10, "M", "L")

	_, err := f.cartService.AddItem(ctx, "user-1", services.AddCartItemInput{ProductID: "p1", Quantity: 2, Size: "M"})
	require.NoError(t, err)
	cart, err := f.cartService.AddItem(ctx, "user-1", services.AddCartItemInput{ProductID: "p1", Quantity: 3, Size: "M"})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)

	cart, err = f.cartService.AddItem(ctx, "user-1", services.AddCartItemInput{ProductID: "p1", Quantity: 1, Size: "L"})
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
	assert.Equal(t, 200.0, cart.TotalAmount)
}

func TestCartService_UsesDiscountPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addProduct(t, "p1", 100, 10)
	product, err := f.products.GetByID(ctx, "p1")
	require.NoError(t, err)
	product.DiscountPrice = 80
	require.NoError(t, f.products.Update(ctx, product))

	cart, err := f.cartService.AddItem(ctx, "user-1", services.AddCartItemInput{ProductID: "p1", Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 80.0, cart.Items[0].Price)
	assert.Equal(t, 160.0, cart.TotalAmount)
}

func TestCartService_AddItemValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addProduct(t, "p1", 100, 3, "M")

	_, err := f.cartService.AddItem(ctx, "user-1", services.AddCartItemInput{ProductID: "p1", Quantity: 1, Size: "XL"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.cartService.AddItem(ctx, "user-1", services.AddCartItemInput{ProductID: "p1", Quantity: 4})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	_, err = f.cartService.AddItem(ctx, "user-1", services.AddCartItemInput{ProductID: "missing", Quantity: 1})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.cartService.AddItem(ctx, "user-1", services.AddCartItemInput{ProductID: "p1", Quantity: 0})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// No size supplied: size membership is not checked.
	cart, err := f.cartService.AddItem(ctx, "user-1", services.AddCartItemInput{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}

func TestCartService_UnknownItemAndClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addProduct(t, "p1", 10, 10)

	_, err := f.cartService.UpdateItem(ctx, "user-1", "nope", 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = f.cartService.RemoveItem(ctx, "user-1", "nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.cartService.AddItem(ctx, "user-1", services.AddCartItemInput{ProductID: "p1", Quantity: 4})
	require.NoError(t, err)
	cart, err := f.cartService.ClearCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.TotalAmount)

	stored, err := f.cartService.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, cart.ID, stored.ID)
	assert.Empty(t, stored.Items)
}
