package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-shop-api/internal/cache"
	"go-shop-api/internal/model"
	"go-shop-api/pkg/apierror"
)

func TestProductService_GetReadThrough(t *testing.T) {
	ctx := context.Background()
	store := newFakeProductStore(mouse, hub)
	c := newTestCache(t)
	svc := NewProductService(store, c, 10*time.Minute, 5*time.Minute)

	p, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Wireless Mouse", p.Name)

	p, err = svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, p.Price.Equal(mouse.Price))
	assert.Equal(t, 1, store.readCount())

	c.Delete(ctx, cache.ProductKey(1))
	_, err = svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, store.readCount())
}

func TestProductService_GetErrors(t *testing.T) {
	svc := NewProductService(newFakeProductStore(mouse), newTestCache(t), time.Minute, time.Minute)

	_, err := svc.Get(context.Background(), 404)
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.HTTPStatus)

	_, err = svc.Get(context.Background(), 0)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.HTTPStatus)
}

func TestProductService_ListCachesPerQueryShape(t *testing.T) {
	ctx := context.Background()
	store := newFakeProductStore(mouse, hub, mat)
	svc := NewProductService(store, newTestCache(t), time.Minute, 5*time.Minute)

	all, err := svc.List(ctx, model.ProductQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, all.Pagination.Total)
	assert.Equal(t, 20, all.Pagination.Limit)

	home, err := svc.List(ctx, model.ProductQuery{Category: " Home "})
	require.NoError(t, err)
	require.Len(t, home.Products, 1)
	assert.Equal(t, "Standing Desk Mat", home.Products[0].Name)

	_, err = svc.List(ctx, model.ProductQuery{Page: 1, Limit: 20})
	require.NoError(t, err)
	_, err = svc.List(ctx, model.ProductQuery{Category: "home"})
	require.NoError(t, err)
	assert.Equal(t, 2, store.readCount())

	paged, err := svc.List(ctx, model.ProductQuery{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, paged.Products, 1)
	assert.Equal(t, 2, paged.Pagination.TotalPages)
}

func TestProductService_ListRefreshedAfterOrder(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	orderStore := newFakeOrderStore(mouse)
	productStore := &orderBackedProducts{orders: orderStore}
	products := NewProductService(productStore, c, time.Minute, 5*time.Minute)
	orders := NewOrderService(orderStore, c, nil, time.Minute, time.Minute)

	before, err := products.List(ctx, model.ProductQuery{})
	require.NoError(t, err)
	assert.Equal(t, 100, before.Products[0].StockQuantity)

	_, err = orders.Place(ctx, buyer, []model.OrderLine{{ProductID: 1, Quantity: 5}})
	require.NoError(t, err)

	after, err := products.List(ctx, model.ProductQuery{})
	require.NoError(t, err)
	assert.Equal(t, 95, after.Products[0].StockQuantity)

	single, err := products.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 95, single.StockQuantity)
}

func TestProductService_ListLimitCapped(t *testing.T) {
	svc := NewProductService(newFakeProductStore(mouse), newTestCache(t), time.Minute, time.Minute)

	list, err := svc.List(context.Background(), model.ProductQuery{Page: -3, Limit: 5000})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Pagination.Page)
	assert.Equal(t, 100, list.Pagination.Limit)
}

// orderBackedProducts reads the catalog out of the order fake so stock
// changes from placements are visible.
type orderBackedProducts struct {
	orders *fakeOrderStore
}

func (p *orderBackedProducts) FindByID(_ context.Context, id int64) (model.Product, error) {
	p.orders.mu.Lock()
	defer p.orders.mu.Unlock()

	prod, ok := p.orders.products[id]
	if !ok {
		return model.Product{}, model.ErrProductNotFound
	}
	return prod, nil
}

func (p *orderBackedProducts) List(ctx context.Context, q model.ProductQuery) ([]model.Product, int, error) {
	p.orders.mu.Lock()
	snapshot := make([]model.Product, 0, len(p.orders.products))
	for _, prod := range p.orders.products {
		snapshot = append(snapshot, prod)
	}
	p.orders.mu.Unlock()

	return newFakeProductStore(snapshot...).List(ctx, q)
}
