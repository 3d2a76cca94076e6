package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func tee(quantity int, stock *int) Item {
	return Item{
		ProductID:    7,
		Name:         "Crew Tee",
		Price:        decimal.RequireFromString("19.99"),
		Size:         "M",
		Color:        "black",
		Quantity:     quantity,
		StockCeiling: stock,
	}
}

func TestAddItemMergesUpToStock(t *testing.T) {
	cases := []struct {
		name        string
		first       int
		second      int
		stock       int
		wantQty     int
		wantLimited bool
	}{
		{name: "under ceiling", first: 2, second: 3, stock: 10, wantQty: 5},
		{name: "exactly ceiling", first: 4, second: 6, stock: 10, wantQty: 10},
		{name: "over ceiling", first: 3, second: 4, stock: 5, wantQty: 5, wantLimited: true},
		{name: "second add alone exceeds", first: 1, second: 50, stock: 3, wantQty: 3, wantLimited: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var c Cart
			_, err := c.AddItem(tee(tc.first, intPtr(tc.stock)))
			require.NoError(t, err)
			res, err := c.AddItem(tee(tc.second, intPtr(tc.stock)))
			require.NoError(t, err)

			require.Len(t, c.Items, 1)
			assert.Equal(t, tc.wantQty, c.Items[0].Quantity)
			assert.Equal(t, tc.wantQty, res.Item.Quantity)
			assert.Equal(t, tc.wantLimited, res.StockLimited)
		})
	}
}

func TestAddItemWithoutCeilingSums(t *testing.T) {
	var c Cart
	_, err := c.AddItem(tee(2, nil))
	require.NoError(t, err)
	_, err = c.AddItem(tee(40, nil))
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 42, c.Items[0].Quantity)
}

func TestAddItemKeepsVariantsApart(t *testing.T) {
	var c Cart
	_, err := c.AddItem(tee(1, nil))
	require.NoError(t, err)

	other := tee(1, nil)
	other.Size = "L"
	_, err = c.AddItem(other)
	require.NoError(t, err)

	other.Color = "white"
	_, err = c.AddItem(other)
	require.NoError(t, err)

	assert.Len(t, c.Items, 3)
	assert.Equal(t, 3, c.ItemCount())
}

func TestAddItemRejectsBadInput(t *testing.T) {
	var c Cart
	_, err := c.AddItem(tee(0, nil))
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = c.AddItem(tee(1, intPtr(0)))
	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.Empty(t, c.Items)
}

func TestUpdateQuantityAndRemove(t *testing.T) {
	var c Cart
	_, err := c.AddItem(tee(2, intPtr(4)))
	require.NoError(t, err)

	res, err := c.UpdateQuantity(7, "M", "black", 9)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Item.Quantity)
	assert.True(t, res.StockLimited)

	_, err = c.UpdateQuantity(7, "S", "black", 1)
	assert.ErrorIs(t, err, ErrItemNotFound)

	_, err = c.UpdateQuantity(7, " M ", "black", 0)
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	_, err = c.AddItem(tee(1, nil))
	require.NoError(t, err)
	c.RemoveItem(7, "M", "black")
	c.RemoveItem(99, "", "")
	assert.Empty(t, c.Items)
}

func TestTotals(t *testing.T) {
	var c Cart
	assert.True(t, c.Total().IsZero())

	_, err := c.AddItem(tee(3, nil))
	require.NoError(t, err)
	_, err = c.AddItem(Item{ProductID: 8, Name: "Cap", Price: decimal.RequireFromString("5.50"), Quantity: 2})
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("70.97").Equal(c.Total()), "got %s", c.Total())
	assert.Equal(t, 5, c.ItemCount())

	c.Clear()
	assert.Empty(t, c.Items)
	assert.Equal(t, 0, c.ItemCount())
}

func TestRepriceFollowsCatalog(t *testing.T) {
	var c Cart
	_, err := c.AddItem(tee(2, intPtr(10)))
	require.NoError(t, err)
	large := tee(3, intPtr(10))
	large.Size = "L"
	_, err = c.AddItem(large)
	require.NoError(t, err)
	_, err = c.AddItem(Item{ProductID: 8, Name: "Cap", Price: decimal.RequireFromString("5.50"), Quantity: 1})
	require.NoError(t, err)

	change, limited := c.Reprice(7, "Crew Tee II", decimal.RequireFromString("24.99"), 10)
	require.NotNil(t, change)
	assert.False(t, limited)
	assert.True(t, decimal.RequireFromString("19.99").Equal(change.OldPrice))
	assert.True(t, decimal.RequireFromString("24.99").Equal(change.NewPrice))
	assert.Equal(t, "Crew Tee II", c.Items[1].Name)
	assert.True(t, decimal.RequireFromString("130.45").Equal(c.Total()), "got %s", c.Total())

	change, _ = c.Reprice(7, "Crew Tee II", decimal.RequireFromString("24.99"), 10)
	assert.Nil(t, change, "unchanged price reports nothing")

	_, limited = c.Reprice(7, "Crew Tee II", decimal.RequireFromString("24.99"), 2)
	assert.True(t, limited)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, 2, c.Items[1].Quantity)

	_, limited = c.Reprice(7, "Crew Tee II", decimal.RequireFromString("24.99"), 0)
	assert.True(t, limited)
	require.Len(t, c.Items, 1, "sold out lines are dropped")
	assert.Equal(t, int64(8), c.Items[0].ProductID)
}

func TestRemoveProductAndProductIDs(t *testing.T) {
	var c Cart
	for _, size := range []string{"S", "M"} {
		item := tee(1, nil)
		item.Size = size
		_, err := c.AddItem(item)
		require.NoError(t, err)
	}
	_, err := c.AddItem(Item{ProductID: 8, Name: "Cap", Price: decimal.RequireFromString("5.50"), Quantity: 1})
	require.NoError(t, err)

	assert.Equal(t, []int64{7, 8}, c.ProductIDs())
	c.RemoveProduct(7)
	assert.Equal(t, []int64{8}, c.ProductIDs())
}
