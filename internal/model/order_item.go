package model

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// now подменяется в тестах.
var now = time.Now

// BundleProduct описывает товар, входящий в бандл.
type BundleProduct struct {
	ProductID string
	Title     string
	Quantity  int
	Price     string
	Image     string
	Size      string
}

func bundleProductFromRecord(rec Record) BundleProduct {
	p := BundleProduct{Quantity: 1, Price: "0"}
	p.ProductID, _ = rec.str("productId", "id")
	p.Title, _ = rec.str("title", "name")
	if v, ok := rec.lookup("quantity"); ok {
		if n, ok := intOf(v); ok {
			p.Quantity = n
		}
	}
	if s, ok := rec.str("price"); ok {
		p.Price = s
	}
	p.Image, _ = rec.str("image", "imageUrl")
	p.Size, _ = rec.str("size")
	return p
}

// ToRecord возвращает запись товара бандла.
func (p BundleProduct) ToRecord() map[string]any {
	return map[string]any{
		"productId": p.ProductID,
		"title":     p.Title,
		"quantity":  p.Quantity,
		"price":     p.Price,
		"image":     p.Image,
		"size":      p.Size,
	}
}

// OrderItem описывает одну позицию заказа: обычный товар или бандл.
// Две позиции равны тогда и только тогда, когда совпадают их UniqueKey.
type OrderItem struct {
	ProductID string
	Title     string
	Quantity  int
	Price     string
	Size      *string
	Color     *ColorInfo
	Image     *string
	IsCombo   bool
	ID        *string
	UniqueKey string

	IsBundleItem            bool
	BundleID                *string
	BundleName              *string
	BundlePrice             *string
	OriginalIndividualPrice *string
	BundleProductSizes      map[string]string
	BundleProducts          []BundleProduct
}

// OrderItemFromRecord разбирает позицию заказа из нетипизированной записи.
// Функция не возвращает ошибок: у каждого поля есть значение по умолчанию.
func OrderItemFromRecord(rec Record) OrderItem {
	it := OrderItem{
		Quantity: 1,
		Price:    "0",
	}

	it.ProductID, _ = rec.str("productId", "id")
	it.Title, _ = rec.str("title", "name")

	if v, ok := rec.lookup("quantity"); ok {
		if n, ok := intOf(v); ok {
			it.Quantity = n
		}
	}

	if s, ok := rec.str("price"); ok {
		it.Price = s
	}

	it.Size = rec.strPtr("size")
	it.Color = colorFromValue(rec["color"])
	it.Image = rec.strPtr("image", "imageUrl")
	it.IsCombo = rec.boolean("isCombo")
	it.ID = rec.strPtr("id")

	if key, ok := rec.str("uniqueKey", "id"); ok {
		it.UniqueKey = key
	} else {
		it.UniqueKey = strconv.FormatInt(now().UnixMilli(), 10)
	}

	it.IsBundleItem = rec.boolean("isBundleItem")
	it.BundleID = rec.strPtr("bundleId")
	it.BundleName = rec.strPtr("bundleName")
	it.BundlePrice = rec.strPtr("bundlePrice")
	it.OriginalIndividualPrice = rec.strPtr("originalIndividualPrice")

	if m, ok := mapOf(rec["bundleProductSizes"]); ok {
		it.BundleProductSizes = make(map[string]string, len(m))
		for pid, v := range m {
			if s, ok := stringOf(v); ok {
				it.BundleProductSizes[pid] = s
			}
		}
	}

	if list, ok := sliceOf(rec["bundleProducts"]); ok {
		it.BundleProducts = make([]BundleProduct, 0, len(list))
		for _, raw := range list {
			m, ok := mapOf(raw)
			if !ok {
				continue
			}
			it.BundleProducts = append(it.BundleProducts, bundleProductFromRecord(m))
		}
	}

	return it
}

// colorFromValue разрешает поле color, которое бывает строкой или вложенной записью.
func colorFromValue(v any) *ColorInfo {
	if s, ok := v.(string); ok {
		return &ColorInfo{Hex: s}
	}
	if m, ok := mapOf(v); ok {
		c := ColorFromRecord(m)
		return &c
	}
	return nil
}

// ToRecord возвращает запись позиции со всеми ключами; отсутствующие значения равны nil.
func (it OrderItem) ToRecord() Record {
	var color any
	if it.Color != nil {
		color = it.Color.ToRecord()
	}

	var sizes any
	if it.BundleProductSizes != nil {
		m := make(map[string]any, len(it.BundleProductSizes))
		for pid, size := range it.BundleProductSizes {
			m[pid] = size
		}
		sizes = m
	}

	var products any
	if it.BundleProducts != nil {
		list := make([]any, 0, len(it.BundleProducts))
		for _, p := range it.BundleProducts {
			list = append(list, p.ToRecord())
		}
		products = list
	}

	return Record{
		"productId":               it.ProductID,
		"title":                   it.Title,
		"quantity":                it.Quantity,
		"price":                   it.Price,
		"size":                    nullable(it.Size),
		"color":                   color,
		"image":                   nullable(it.Image),
		"isCombo":                 it.IsCombo,
		"id":                      nullable(it.ID),
		"uniqueKey":               it.UniqueKey,
		"bundleId":                nullable(it.BundleID),
		"isBundleItem":            it.IsBundleItem,
		"bundlePrice":             nullable(it.BundlePrice),
		"bundleName":              nullable(it.BundleName),
		"originalIndividualPrice": nullable(it.OriginalIndividualPrice),
		"bundleProductSizes":      sizes,
		"bundleProducts":          products,
	}
}

// Equal сравнивает позиции по UniqueKey.
func (it OrderItem) Equal(other OrderItem) bool {
	return it.UniqueKey == other.UniqueKey
}

// Key возвращает ключ позиции для использования в map.
func (it OrderItem) Key() string {
	return it.UniqueKey
}

// Clone возвращает глубокую копию позиции.
func (it OrderItem) Clone() OrderItem {
	c := it
	c.Size = clonePtr(it.Size)
	c.Image = clonePtr(it.Image)
	c.ID = clonePtr(it.ID)
	c.BundleID = clonePtr(it.BundleID)
	c.BundleName = clonePtr(it.BundleName)
	c.BundlePrice = clonePtr(it.BundlePrice)
	c.OriginalIndividualPrice = clonePtr(it.OriginalIndividualPrice)
	if it.Color != nil {
		color := *it.Color
		c.Color = &color
	}
	if it.BundleProductSizes != nil {
		c.BundleProductSizes = make(map[string]string, len(it.BundleProductSizes))
		for k, v := range it.BundleProductSizes {
			c.BundleProductSizes[k] = v
		}
	}
	if it.BundleProducts != nil {
		c.BundleProducts = append([]BundleProduct(nil), it.BundleProducts...)
	}
	return c
}

// WithQuantity возвращает копию позиции с другим количеством.
func (it OrderItem) WithQuantity(quantity int) OrderItem {
	c := it.Clone()
	c.Quantity = quantity
	return c
}

// WithPrice возвращает копию позиции с другой ценой.
func (it OrderItem) WithPrice(price string) OrderItem {
	c := it.Clone()
	c.Price = price
	return c
}

// WithSize возвращает копию позиции с другим размером.
func (it OrderItem) WithSize(size string) OrderItem {
	c := it.Clone()
	c.Size = &size
	return c
}

// WithColor возвращает копию позиции с другим цветом.
func (it OrderItem) WithColor(color ColorInfo) OrderItem {
	c := it.Clone()
	c.Color = &color
	return c
}

// PriceValue возвращает числовое значение Price; нераспознанная цена даёт 0.
func (it OrderItem) PriceValue() float64 {
	return toFloat(it.priceDecimal())
}

// TotalPrice возвращает PriceValue * Quantity.
func (it OrderItem) TotalPrice() float64 {
	return toFloat(it.priceDecimal().Mul(decimal.NewFromInt(int64(it.Quantity))))
}

// BundlePriceValue возвращает числовое значение цены бандла.
func (it OrderItem) BundlePriceValue() float64 {
	return toFloat(parsePrice(it.BundlePrice))
}

// OriginalIndividualPriceValue возвращает сумму цен товаров бандла по отдельности.
func (it OrderItem) OriginalIndividualPriceValue() float64 {
	return toFloat(parsePrice(it.OriginalIndividualPrice))
}

// BundleSavings возвращает экономию по бандлу с учётом количества. Может быть отрицательной.
func (it OrderItem) BundleSavings() float64 {
	return toFloat(it.bundleSavingsDecimal())
}

func (it OrderItem) priceDecimal() decimal.Decimal {
	return parsePrice(&it.Price)
}

func (it OrderItem) bundleSavingsDecimal() decimal.Decimal {
	diff := parsePrice(it.OriginalIndividualPrice).Sub(parsePrice(it.BundlePrice))
	return diff.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// ProductSizeInBundle возвращает размер товара в бандле или пустую строку.
func (it OrderItem) ProductSizeInBundle(productID string) string {
	return it.BundleProductSizes[productID]
}

// FormatBundleProductSizes возвращает строку вида "pid1: size1, pid2: size2" с ключами по возрастанию.
func (it OrderItem) FormatBundleProductSizes() string {
	if len(it.BundleProductSizes) == 0 {
		return ""
	}
	ids := make([]string, 0, len(it.BundleProductSizes))
	for pid := range it.BundleProductSizes {
		ids = append(ids, pid)
	}
	sort.Strings(ids)

	parts := make([]string, 0, len(ids))
	for _, pid := range ids {
		parts = append(parts, pid+": "+it.BundleProductSizes[pid])
	}
	return strings.Join(parts, ", ")
}

// BundleProductByID возвращает первый товар бандла с указанным идентификатором.
func (it OrderItem) BundleProductByID(productID string) (BundleProduct, bool) {
	for _, p := range it.BundleProducts {
		if p.ProductID == productID {
			return p, true
		}
	}
	return BundleProduct{}, false
}

// FormatBundleProductsList перечисляет товары бандла как "title (size)" или просто "title".
func (it OrderItem) FormatBundleProductsList() string {
	parts := make([]string, 0, len(it.BundleProducts))
	for _, p := range it.BundleProducts {
		size := p.Size
		if size == "" {
			size = it.ProductSizeInBundle(p.ProductID)
		}
		if size != "" {
			parts = append(parts, p.Title+" ("+size+")")
			continue
		}
		parts = append(parts, p.Title)
	}
	return strings.Join(parts, ", ")
}

// parsePrice оставляет в строке только цифры и точки и разбирает результат.
func parsePrice(s *string) decimal.Decimal {
	if s == nil {
		return decimal.Zero
	}
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, *s)
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
