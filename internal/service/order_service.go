package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"go-shop-api/internal/cache"
	"go-shop-api/internal/event"
	"go-shop-api/internal/model"
	"go-shop-api/internal/repository"
	"go-shop-api/pkg/apierror"
)

type OrderStore interface {
	WithinTx(ctx context.Context, fn func(tx repository.OrderTx) error) error
	FindByID(ctx context.Context, id int64) (model.Order, error)
	ListByUser(ctx context.Context, q model.OrderQuery) ([]model.Order, int, error)
}

type OrderService struct {
	orders   OrderStore
	cache    Cache
	bus      event.Bus
	orderTTL time.Duration
	listTTL  time.Duration
}

func NewOrderService(orders OrderStore, c Cache, bus event.Bus, orderTTL time.Duration, listTTL time.Duration) *OrderService {
	return &OrderService{orders: orders, cache: c, bus: bus, orderTTL: orderTTL, listTTL: listTTL}
}

// Place validates and persists an order in a single transaction. Either every
// line is stored and every stock level decremented, or nothing changes.
func (s *OrderService) Place(ctx context.Context, user model.AuthUser, lines []model.OrderLine) (model.PlacedOrder, error) {
	if len(lines) == 0 {
		return model.PlacedOrder{}, apierror.BusinessRule(model.ErrEmptyOrder.Error())
	}

	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 || line.ProductID <= 0 {
			return model.PlacedOrder{}, apierror.Validation("invalid order line",
				apierror.FieldError{Field: "items", Message: "product_id and quantity must be positive"})
		}
		ids = append(ids, line.ProductID)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	var placed model.PlacedOrder
	err := s.orders.WithinTx(ctx, func(tx repository.OrderTx) error {
		locked, err := tx.LockProducts(ctx, ids)
		if err != nil {
			return err
		}

		requested := make(map[int64]int, len(ids))
		items := make([]model.OrderItem, 0, len(lines))
		total := decimal.Zero

		for _, line := range lines {
			product, ok := locked[line.ProductID]
			if !ok {
				return apierror.BusinessRule(fmt.Sprintf("product %d not found", line.ProductID))
			}

			requested[line.ProductID] += line.Quantity
			if requested[line.ProductID] > product.StockQuantity {
				return apierror.BusinessRule("Insufficient stock for " + product.Name)
			}

			lineTotal := product.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
			total = total.Add(lineTotal)
			items = append(items, model.OrderItem{
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    line.Quantity,
				UnitPrice:   product.Price,
				TotalPrice:  lineTotal,
			})
		}

		orderID, err := tx.CreateOrder(ctx, user.ID, total)
		if err != nil {
			return err
		}

		for _, item := range items {
			item.OrderID = orderID
			if err := tx.InsertItem(ctx, item); err != nil {
				return err
			}
		}

		for _, item := range items {
			err := tx.DecrementStock(ctx, item.ProductID, item.Quantity)
			if errors.Is(err, model.ErrInsufficientStock) {
				return apierror.BusinessRule("Insufficient stock for " + item.ProductName)
			}
			if err != nil {
				return err
			}
		}

		placed = model.PlacedOrder{OrderID: orderID, TotalAmount: total}
		return nil
	})

	if err != nil {
		var apiErr *apierror.APIError
		if errors.As(err, &apiErr) {
			s.publish(event.Failure(event.TypeOrderPlaceFailed, user.ID, "", map[string]any{"reason": apiErr.Message}))
			return model.PlacedOrder{}, apiErr
		}
		return model.PlacedOrder{}, fmt.Errorf("place order: %w", err)
	}

	s.invalidateAfterPlacement(ctx, user.ID, ids)
	s.publish(event.New(event.TypeOrderPlaced, user.ID, cache.OrderKey(placed.OrderID), map[string]any{
		"order_id":     placed.OrderID,
		"total_amount": placed.TotalAmount.StringFixed(2),
		"product_ids":  ids,
	}))

	return placed, nil
}

func (s *OrderService) invalidateAfterPlacement(ctx context.Context, userID int64, productIDs []int64) {
	keys := make([]string, 0, len(productIDs)+1)
	keys = append(keys, cache.DashboardKey(userID))
	for _, id := range productIDs {
		keys = append(keys, cache.ProductKey(id))
	}

	ok := s.cache.Delete(ctx, keys...)
	ok = s.cache.BumpVersion(ctx, cache.NamespaceProducts) && ok
	ok = s.cache.BumpVersion(ctx, cache.OrdersNamespace(userID)) && ok
	if !ok {
		slog.Warn("cache invalidation incomplete after order placement; entries will expire by TTL", "user_id", userID)
	}
}

func (s *OrderService) ListMine(ctx context.Context, user model.AuthUser, page int, limit int) (model.OrderList, error) {
	page, limit = normalizePage(page, limit)

	version := s.cache.Version(ctx, cache.OrdersNamespace(user.ID))
	key := cache.OrderListKey(user.ID, version, page, limit)

	var cached model.OrderList
	if version != "" && s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	orders, total, err := s.orders.ListByUser(ctx, model.OrderQuery{UserID: user.ID, Page: page, Limit: limit})
	if err != nil {
		return model.OrderList{}, fmt.Errorf("list orders: %w", err)
	}

	list := model.OrderList{Orders: orders, Pagination: model.NewPagination(page, limit, total)}
	if version != "" {
		s.cache.Set(ctx, key, list, s.listTTL)
	}

	return list, nil
}

// Get returns an order owned by user. Orders of other users are reported
// as not found.
func (s *OrderService) Get(ctx context.Context, user model.AuthUser, id int64) (model.Order, error) {
	if id <= 0 {
		return model.Order{}, apierror.Validation("invalid order id", apierror.FieldError{Field: "id", Message: "must be a positive integer"})
	}

	notFound := apierror.NotFound("order not found", strconv.FormatInt(id, 10))

	var order model.Order
	if !s.cache.Get(ctx, cache.OrderKey(id), &order) {
		var err error
		order, err = s.orders.FindByID(ctx, id)
		if errors.Is(err, model.ErrOrderNotFound) {
			return model.Order{}, notFound
		}
		if err != nil {
			return model.Order{}, fmt.Errorf("get order: %w", err)
		}
		s.cache.Set(ctx, cache.OrderKey(id), order, s.orderTTL)
	}

	if order.UserID != user.ID {
		return model.Order{}, notFound
	}
	return order, nil
}

func (s *OrderService) publish(e event.Event) {
	if s.bus != nil {
		s.bus.Publish(e)
	}
}
