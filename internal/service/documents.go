package service

import (
	"context"

	"github.com/mmeshcher/gophershop/internal/model"
)

// authorize разрешает доступ к документам только их владельцу.
func authorize(requester, owner string) error {
	if requester == "" || requester != owner {
		return ErrPermissionDenied
	}
	return nil
}

// IsAdmin возвращает признак администратора для документа пользователя.
func (s *Service) IsAdmin(ctx context.Context, requester, uid string) (bool, error) {
	if err := authorize(requester, uid); err != nil {
		return false, err
	}
	return s.repo.IsAdmin(ctx, uid)
}

// GetUserData возвращает произвольный документ пользователя.
func (s *Service) GetUserData(ctx context.Context, requester, uid string) (model.Record, error) {
	if err := authorize(requester, uid); err != nil {
		return nil, err
	}
	return s.repo.GetUserData(ctx, uid)
}

// PutUserData заменяет документ пользователя.
func (s *Service) PutUserData(ctx context.Context, requester, uid string, data model.Record) error {
	if err := authorize(requester, uid); err != nil {
		return err
	}
	if data == nil {
		return ErrInvalidArgument
	}
	return s.repo.PutUserData(ctx, uid, data)
}

// PlaceOrder нормализует позиции и сохраняет заказ со статусом PLACED.
func (s *Service) PlaceOrder(ctx context.Context, requester, uid string, items []model.Record) (*model.Order, error) {
	if err := authorize(requester, uid); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrInvalidArgument
	}

	normalized := make([]model.Record, 0, len(items))
	for _, rec := range items {
		normalized = append(normalized, model.OrderItemFromRecord(rec).ToRecord())
	}

	created, err := s.repo.CreateOrder(ctx, uid, model.OrderStatusPlaced, normalized)
	if err != nil {
		return nil, err
	}

	order := model.OrderFromRecord(*created)
	return &order, nil
}

// GetOrdersByUser возвращает историю заказов пользователя от новых к старым.
func (s *Service) GetOrdersByUser(ctx context.Context, requester, uid string) ([]model.Order, error) {
	if err := authorize(requester, uid); err != nil {
		return nil, err
	}

	records, err := s.repo.GetOrdersByUser(ctx, uid)
	if err != nil {
		return nil, err
	}

	orders := make([]model.Order, 0, len(records))
	for _, r := range records {
		orders = append(orders, model.OrderFromRecord(r))
	}
	return orders, nil
}
