package services_test

import (
	"errors"
	"testing"

	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartAddItemUsesMenu(t *testing.T) {
	e := newEnv(t)
	sess := e.register(memberPhone, "Ravi")

	v, err := e.cart.AddItem(e.ctx, sess, "dal", models.MealLunch, 2)
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, 40.0, v.Items[0].Price)
	assert.Equal(t, 80.0, v.Total)

	_, err = e.cart.AddItem(e.ctx, sess, "roti", models.MealLunch, 1)
	assert.True(t, services.IsValidation(err))

	_, err = e.cart.AddItem(e.ctx, sess, "dal", models.MealBreakfast, 1)
	assert.ErrorIs(t, err, services.ErrMealClosed)

	_, err = e.cart.AddItem(e.ctx, sess, "dal", models.MealLunch, 0)
	assert.True(t, services.IsValidation(err))

	_, err = e.cart.UpdateQuantity(e.ctx, sess, "rice", 3)
	assert.ErrorIs(t, err, services.ErrNotFound)

	v, err = e.cart.UpdateQuantity(e.ctx, sess, "dal", 0)
	require.NoError(t, err)
	assert.Empty(t, v.Items)
}

func TestCartGroupsByMeal(t *testing.T) {
	e := newEnv(t)
	sess := e.register(memberPhone, "Ravi")

	_, err := e.cart.AddItem(e.ctx, sess, "roti", models.MealDinner, 3)
	require.NoError(t, err)
	_, err = e.cart.AddItem(e.ctx, sess, "dal", models.MealLunch, 1)
	require.NoError(t, err)
	v, err := e.cart.AddItem(e.ctx, sess, "dal", models.MealLunch, 1)
	require.NoError(t, err)

	require.Len(t, v.Groups, 2)
	assert.Equal(t, models.MealLunch, v.Groups[0].MealType)
	assert.Equal(t, 80.0, v.Groups[0].Total)
	assert.Equal(t, models.MealDinner, v.Groups[1].MealType)
	assert.Equal(t, 5, v.ItemCount)
}

func TestCheckoutPlacesOneOrderPerMeal(t *testing.T) {
	e := newEnv(t)
	sess := e.register(memberPhone, "Ravi")

	_, err := e.cart.AddItem(e.ctx, sess, "dal", models.MealLunch, 2)
	require.NoError(t, err)
	_, err = e.cart.AddItem(e.ctx, sess, "roti", models.MealDinner, 4)
	require.NoError(t, err)

	res, err := e.cart.Checkout(e.ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, services.CheckoutComplete, res.Outcome)
	require.Len(t, res.Placed, 2)
	assert.Empty(t, res.Failed)
	assert.Empty(t, res.Cart.Items)
	assert.Equal(t, 2, e.store.Orders.Created())

	mine, err := e.orders.Mine(e.ctx, sess, models.OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	var total float64
	for _, o := range mine {
		total += o.Total
	}
	assert.Equal(t, 120.0, total)
}

func TestCheckoutPartialFailureKeepsFailedLines(t *testing.T) {
	e := newEnv(t)
	sess := e.register(memberPhone, "Ravi")

	_, err := e.cart.AddItem(e.ctx, sess, "dal", models.MealLunch, 1)
	require.NoError(t, err)
	_, err = e.cart.AddItem(e.ctx, sess, "roti", models.MealDinner, 2)
	require.NoError(t, err)

	e.store.Orders.CreateErr = map[models.MealType]error{models.MealDinner: errors.New("write failed")}
	res, err := e.cart.Checkout(e.ctx, sess)
	require.NoError(t, err)

	assert.Equal(t, services.CheckoutPartial, res.Outcome)
	require.Len(t, res.Placed, 1)
	assert.Equal(t, models.MealLunch, res.Placed[0].MealType)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, models.MealDinner, res.Failed[0].MealType)
	assert.Equal(t, "INTERNAL", res.Failed[0].Code)

	require.Len(t, res.Cart.Items, 1)
	assert.Equal(t, "roti", res.Cart.Items[0].MenuItemID)

	// the retry only places what is left
	e.store.Orders.CreateErr = nil
	res, err = e.cart.Checkout(e.ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, services.CheckoutComplete, res.Outcome)
	assert.Equal(t, 2, e.store.Orders.Created())
}

func TestCheckoutAfterCutoff(t *testing.T) {
	e := newEnv(t)
	sess := e.register(memberPhone, "Ravi")

	_, err := e.cart.AddItem(e.ctx, sess, "dal", models.MealLunch, 1)
	require.NoError(t, err)
	e.at(12, 0)

	res, err := e.cart.Checkout(e.ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, services.CheckoutFailed, res.Outcome)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, services.CodeMealClosed, res.Failed[0].Code)
	assert.Len(t, res.Cart.Items, 1)
	assert.Equal(t, 0, e.store.Orders.Created())
}

func TestCheckoutKeepsPriceSeenInCart(t *testing.T) {
	e := newEnv(t)
	sess := e.register(memberPhone, "Ravi")

	_, err := e.cart.AddItem(e.ctx, sess, "dal", models.MealLunch, 1)
	require.NoError(t, err)

	// republishing after a price change does not reprice the cart
	e.items["dal"].Price = 55
	e.publish(today, models.MealLunch, "dal", "rice")

	res, err := e.cart.Checkout(e.ctx, sess)
	require.NoError(t, err)
	require.Len(t, res.Placed, 1)
	assert.Equal(t, 40.0, res.Placed[0].Order.Total)
}

func TestEmptyCartCheckout(t *testing.T) {
	e := newEnv(t)
	sess := e.register(memberPhone, "Ravi")
	_, err := e.cart.Checkout(e.ctx, sess)
	assert.True(t, services.IsValidation(err))

	_, err = e.cart.Get(e.ctx, e.owner())
	assert.ErrorIs(t, err, services.ErrForbidden)
}
