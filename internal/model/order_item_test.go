package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func bundleItem() OrderItem {
	return OrderItem{
		ProductID:               "bundle-1",
		Title:                   "Summer set",
		Quantity:                2,
		Price:                   "40.00",
		IsCombo:                 true,
		ID:                      strp("bundle-1"),
		UniqueKey:               "bundle-1-M",
		IsBundleItem:            true,
		BundleID:                strp("b1"),
		BundleName:              strp("Summer set"),
		BundlePrice:             strp("40.00"),
		OriginalIndividualPrice: strp("50.00"),
		BundleProductSizes:      map[string]string{"p1": "M", "p2": "L"},
		BundleProducts: []BundleProduct{
			{ProductID: "p1", Title: "Shirt", Quantity: 1, Price: "20", Image: "shirt.png"},
			{ProductID: "p2", Title: "Shorts", Quantity: 1, Price: "30", Image: "shorts.png", Size: "XL"},
		},
	}
}

func TestOrderItemFromRecord_Defaults(t *testing.T) {
	fixed := time.UnixMilli(1700000000123)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })

	it := OrderItemFromRecord(Record{})

	assert.Equal(t, "", it.ProductID)
	assert.Equal(t, "", it.Title)
	assert.Equal(t, 1, it.Quantity)
	assert.Equal(t, "0", it.Price)
	assert.Equal(t, 0.0, it.PriceValue())
	assert.Nil(t, it.Color)
	assert.Nil(t, it.Size)
	assert.Nil(t, it.Image)
	assert.Nil(t, it.BundleProductSizes)
	assert.Nil(t, it.BundleProducts)
	assert.Equal(t, "1700000000123", it.UniqueKey)
}

func TestOrderItemFromRecord_Aliases(t *testing.T) {
	tests := []struct {
		name          string
		rec           Record
		wantProductID string
		wantTitle     string
		wantImage     *string
		wantKey       string
	}{
		{
			name:          "primary keys win",
			rec:           Record{"productId": "p", "id": "i", "title": "T", "name": "N", "image": "a.png", "imageUrl": "b.png", "uniqueKey": "k"},
			wantProductID: "p",
			wantTitle:     "T",
			wantImage:     strp("a.png"),
			wantKey:       "k",
		},
		{
			name:          "fallback keys",
			rec:           Record{"id": "i", "name": "N", "imageUrl": "b.png"},
			wantProductID: "i",
			wantTitle:     "N",
			wantImage:     strp("b.png"),
			wantKey:       "i",
		},
		{
			name:          "null primary falls back",
			rec:           Record{"productId": nil, "id": "i", "title": nil, "name": "N", "uniqueKey": nil},
			wantProductID: "i",
			wantTitle:     "N",
			wantKey:       "i",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := OrderItemFromRecord(tt.rec)
			assert.Equal(t, tt.wantProductID, it.ProductID)
			assert.Equal(t, tt.wantTitle, it.Title)
			assert.Equal(t, tt.wantImage, it.Image)
			assert.Equal(t, tt.wantKey, it.UniqueKey)
		})
	}
}

func TestOrderItemFromRecord_Quantity(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want int
	}{
		{name: "int", raw: 3, want: 3},
		{name: "integral float from json", raw: float64(4), want: 4},
		{name: "numeric string", raw: "5", want: 5},
		{name: "fractional float", raw: 2.5, want: 1},
		{name: "garbage string", raw: "many", want: 1},
		{name: "zero integer kept", raw: 0, want: 0},
		{name: "negative integer kept", raw: -2, want: -2},
		{name: "absent", raw: nil, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := OrderItemFromRecord(Record{"quantity": tt.raw, "uniqueKey": "k"})
			assert.Equal(t, tt.want, it.Quantity)
		})
	}
}

func TestOrderItemFromRecord_ZeroQuantityRoundTrip(t *testing.T) {
	rec := OrderItem{UniqueKey: "k", Quantity: 0, Price: "5"}.ToRecord()

	it := OrderItemFromRecord(rec)

	assert.Equal(t, 0, it.Quantity)
	assert.Equal(t, 0, it.ToRecord()["quantity"])
	assert.Equal(t, 0.0, it.TotalPrice())
}

func TestOrderItemFromRecord_Color(t *testing.T) {
	t.Run("missing color is none", func(t *testing.T) {
		it := OrderItemFromRecord(Record{"uniqueKey": "k"})
		assert.Nil(t, it.Color)
	})

	t.Run("string color", func(t *testing.T) {
		it := OrderItemFromRecord(Record{"uniqueKey": "k", "color": "#AABBCC"})
		require.NotNil(t, it.Color)
		assert.Equal(t, "#AABBCC", it.Color.Hex)
		assert.Equal(t, "", it.Color.Name)
	})

	t.Run("record color", func(t *testing.T) {
		it := OrderItemFromRecord(Record{"uniqueKey": "k", "color": map[string]any{"name": "Navy", "hex": "#000080"}})
		require.NotNil(t, it.Color)
		assert.Equal(t, ColorInfo{Name: "Navy", Hex: "#000080"}, *it.Color)
	})

	t.Run("unsupported color type is none", func(t *testing.T) {
		it := OrderItemFromRecord(Record{"uniqueKey": "k", "color": 42})
		assert.Nil(t, it.Color)
	})
}

func TestOrderItem_RoundTrip(t *testing.T) {
	simple := OrderItem{
		ProductID: "p1",
		Title:     "Shirt",
		Quantity:  3,
		Price:     "$12.50",
		Size:      strp("M"),
		Color:     &ColorInfo{Name: "Red", Hex: "#FF0000"},
		Image:     strp("shirt.png"),
		UniqueKey: "p1-M-red",
	}

	for _, orig := range []OrderItem{simple, bundleItem()} {
		got := OrderItemFromRecord(orig.ToRecord())
		assert.True(t, orig.Equal(got))
		assert.Equal(t, orig, got)
	}
}

func TestOrderItem_RoundTripThroughJSON(t *testing.T) {
	orig := bundleItem()

	raw, err := json.Marshal(orig.ToRecord())
	require.NoError(t, err)

	var rec Record
	require.NoError(t, json.Unmarshal(raw, &rec))

	assert.Equal(t, orig, OrderItemFromRecord(rec))
}

func TestOrderItem_ToRecordKeys(t *testing.T) {
	rec := OrderItem{UniqueKey: "k", Quantity: 1, Price: "0"}.ToRecord()

	keys := []string{
		"productId", "title", "quantity", "price", "size", "color", "image", "isCombo",
		"id", "uniqueKey", "bundleId", "isBundleItem", "bundlePrice", "bundleName",
		"originalIndividualPrice", "bundleProductSizes", "bundleProducts",
	}
	assert.Len(t, rec, len(keys))
	for _, k := range keys {
		assert.Contains(t, rec, k)
	}
	assert.Nil(t, rec["color"])
	assert.Nil(t, rec["size"])
}

func TestOrderItemFromRecord_DeepCopiesBundleContainers(t *testing.T) {
	sizes := map[string]any{"p1": "M"}
	products := []any{map[string]any{"productId": "p1", "title": "Shirt"}}

	it := OrderItemFromRecord(Record{
		"uniqueKey":          "k",
		"bundleProductSizes": sizes,
		"bundleProducts":     products,
	})

	sizes["p1"] = "XXL"
	products[0].(map[string]any)["title"] = "Changed"

	assert.Equal(t, "M", it.ProductSizeInBundle("p1"))
	assert.Equal(t, "Shirt", it.BundleProducts[0].Title)
}

func TestOrderItem_Equality(t *testing.T) {
	a := OrderItem{UniqueKey: "k1", Title: "Shirt"}
	b := OrderItem{UniqueKey: "k1", Title: "Hat"}
	c := OrderItem{UniqueKey: "k2", Title: "Shirt"}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.Equal(t, a.Key(), b.Key())
}

func TestOrderItem_Pricing(t *testing.T) {
	tests := []struct {
		name  string
		price string
		want  float64
	}{
		{name: "currency symbol", price: "$12.50", want: 12.50},
		{name: "not a number", price: "free", want: 0},
		{name: "thousands separator", price: "1,299.99", want: 1299.99},
		{name: "two dots", price: "1.2.3", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := OrderItem{Price: tt.price, Quantity: 2}
			assert.InDelta(t, tt.want, it.PriceValue(), 1e-9)
			assert.InDelta(t, tt.want*2, it.TotalPrice(), 1e-9)
		})
	}
}

func TestOrderItem_BundleSavings(t *testing.T) {
	it := OrderItem{
		Quantity:                2,
		BundlePrice:             strp("40.00"),
		OriginalIndividualPrice: strp("50.00"),
	}
	assert.Equal(t, 20.0, it.BundleSavings())
	assert.Equal(t, 40.0, it.BundlePriceValue())
	assert.Equal(t, 50.0, it.OriginalIndividualPriceValue())

	inconsistent := OrderItem{Quantity: 1, BundlePrice: strp("60"), OriginalIndividualPrice: strp("50")}
	assert.Equal(t, -10.0, inconsistent.BundleSavings())

	assert.Equal(t, 0.0, OrderItem{Quantity: 3}.BundleSavings())
}

func TestOrderItem_BundleHelpers(t *testing.T) {
	it := bundleItem()

	assert.Equal(t, "M", it.ProductSizeInBundle("p1"))
	assert.Equal(t, "", it.ProductSizeInBundle("missing"))
	assert.Equal(t, "p1: M, p2: L", it.FormatBundleProductSizes())
	assert.Equal(t, "Shirt (M), Shorts (XL)", it.FormatBundleProductsList())

	p, ok := it.BundleProductByID("p2")
	require.True(t, ok)
	assert.Equal(t, "Shorts", p.Title)

	_, ok = it.BundleProductByID("nope")
	assert.False(t, ok)

	assert.Equal(t, "", OrderItem{}.FormatBundleProductSizes())
	_, ok = OrderItem{}.BundleProductByID("p1")
	assert.False(t, ok)
}

func TestOrderItem_FormatBundleProductsListFromRecord(t *testing.T) {
	it := OrderItemFromRecord(Record{
		"uniqueKey":          "k",
		"bundleProducts":     []any{map[string]any{"productId": "p1", "title": "Shirt"}},
		"bundleProductSizes": map[string]any{"p1": "M"},
	})
	assert.Equal(t, "Shirt (M)", it.FormatBundleProductsList())

	bare := OrderItemFromRecord(Record{
		"uniqueKey":      "k",
		"bundleProducts": []any{map[string]any{"productId": "p1", "title": "Shirt"}, map[string]any{"productId": "p2", "title": "Cap"}},
	})
	assert.Equal(t, "Shirt, Cap", bare.FormatBundleProductsList())
}

func TestOrderItem_CopyDoesNotAlias(t *testing.T) {
	orig := bundleItem()

	changed := orig.WithQuantity(5).WithSize("S").WithColor(ColorInfo{Name: "Blue", Hex: "#0000FF"}).WithPrice("10")
	changed.BundleProductSizes["p1"] = "XS"
	changed.BundleProducts[0].Title = "Other"

	assert.Equal(t, 2, orig.Quantity)
	assert.Nil(t, orig.Size)
	assert.Nil(t, orig.Color)
	assert.Equal(t, "40.00", orig.Price)
	assert.Equal(t, "M", orig.BundleProductSizes["p1"])
	assert.Equal(t, "Shirt", orig.BundleProducts[0].Title)
	assert.True(t, orig.Equal(changed))
}

func TestOrder_Totals(t *testing.T) {
	rec := OrderRecord{
		ID:     "o1",
		UserID: "u1",
		Status: OrderStatusPlaced,
		Items: []Record{
			{"uniqueKey": "a", "price": "$10.10", "quantity": 3},
			bundleItem().ToRecord(),
		},
	}

	o := OrderFromRecord(rec)

	require.Len(t, o.Items, 2)
	assert.InDelta(t, 110.30, o.Total(), 1e-9)
	assert.Equal(t, 20.0, o.Savings())
	assert.Equal(t, 5, o.ItemCount())
}
