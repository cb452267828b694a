// Package model содержит доменные сущности магазина: позиции заказов, цвета, пользователей.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User представляет зарегистрированного пользователя на стороне хранилища учётных записей.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash []byte
	IsAdmin      bool
	CreatedAt    time.Time
}

// Identity возвращает публичную часть пользователя, которую видит клиент.
func (u *User) Identity() *Identity {
	if u == nil {
		return nil
	}
	return &Identity{
		UID:         u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
	}
}

// Identity описывает пользователя, выданного провайдером идентификации.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

// OrderStatus описывает статус заказа в истории пользователя.
type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "PLACED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// OrderRecord описывает заказ в том виде, в каком он лежит в хранилище: позиции остаются нетипизированными записями.
type OrderRecord struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	Status    OrderStatus `json:"status"`
	Items     []Record    `json:"items"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Order описывает заказ с разобранными позициями.
type Order struct {
	ID        string
	UserID    string
	Status    OrderStatus
	Items     []OrderItem
	CreatedAt time.Time
}

// OrderFromRecord разбирает позиции заказа. Разбор не бывает неуспешным.
func OrderFromRecord(rec OrderRecord) Order {
	items := make([]OrderItem, 0, len(rec.Items))
	for _, r := range rec.Items {
		items = append(items, OrderItemFromRecord(r))
	}
	return Order{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Status:    rec.Status,
		Items:     items,
		CreatedAt: rec.CreatedAt,
	}
}

// ToRecord возвращает заказ в виде для хранения и передачи.
func (o Order) ToRecord() OrderRecord {
	items := make([]Record, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, it.ToRecord())
	}
	return OrderRecord{
		ID:        o.ID,
		UserID:    o.UserID,
		Status:    o.Status,
		Items:     items,
		CreatedAt: o.CreatedAt,
	}
}

// Total возвращает сумму TotalPrice по всем позициям.
func (o Order) Total() float64 {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.priceDecimal().Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	f, _ := sum.Float64()
	return f
}

// Savings возвращает суммарную экономию по бандлам заказа.
func (o Order) Savings() float64 {
	sum := decimal.Zero
	for _, it := range o.Items {
		if !it.IsBundleItem {
			continue
		}
		sum = sum.Add(it.bundleSavingsDecimal())
	}
	f, _ := sum.Float64()
	return f
}

// ItemCount возвращает общее количество единиц товара в заказе.
func (o Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}
