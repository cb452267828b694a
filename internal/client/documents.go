package client

import (
	"context"
	"net/http"

	"github.com/mmeshcher/gophershop/internal/model"
)

// IsAdmin читает признак администратора из документа пользователя.
func (c *Client) IsAdmin(ctx context.Context, uid string) (bool, error) {
	var resp struct {
		IsAdmin bool `json:"isAdmin"`
	}
	if err := c.do(ctx, http.MethodGet, userPath(uid, "/admin"), nil, &resp); err != nil {
		return false, err
	}
	return resp.IsAdmin, nil
}

// UserData возвращает произвольный документ текущего пользователя.
func (c *Client) UserData(ctx context.Context) (model.Record, error) {
	uid, err := c.currentUID()
	if err != nil {
		return nil, err
	}

	var data model.Record
	if err := c.do(ctx, http.MethodGet, userPath(uid, "/data"), nil, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// PutUserData заменяет документ текущего пользователя.
func (c *Client) PutUserData(ctx context.Context, data model.Record) error {
	uid, err := c.currentUID()
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, userPath(uid, "/data"), data, nil)
}

// Orders возвращает заказы текущего пользователя в порядке от новых к старым.
func (c *Client) Orders(ctx context.Context) ([]model.Order, error) {
	uid, err := c.currentUID()
	if err != nil {
		return nil, err
	}

	var records []model.OrderRecord
	if err := c.do(ctx, http.MethodGet, userPath(uid, "/orders"), nil, &records); err != nil {
		return nil, err
	}

	orders := make([]model.Order, 0, len(records))
	for _, r := range records {
		orders = append(orders, model.OrderFromRecord(r))
	}
	return orders, nil
}

// PlaceOrder оформляет заказ из позиций корзины.
func (c *Client) PlaceOrder(ctx context.Context, items []model.OrderItem) (*model.Order, error) {
	uid, err := c.currentUID()
	if err != nil {
		return nil, err
	}

	records := make([]model.Record, 0, len(items))
	for _, item := range items {
		records = append(records, item.ToRecord())
	}

	var created model.OrderRecord
	if err := c.do(ctx, http.MethodPost, userPath(uid, "/orders"), map[string]any{"items": records}, &created); err != nil {
		return nil, err
	}

	order := model.OrderFromRecord(created)
	return &order, nil
}
