package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go-shop-api/internal/cache"
	"go-shop-api/internal/model"
	"go-shop-api/pkg/apierror"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type ProductStore interface {
	FindByID(ctx context.Context, id int64) (model.Product, error)
	List(ctx context.Context, q model.ProductQuery) ([]model.Product, int, error)
}

type ProductService struct {
	products   ProductStore
	cache      Cache
	productTTL time.Duration
	listTTL    time.Duration
}

func NewProductService(products ProductStore, c Cache, productTTL time.Duration, listTTL time.Duration) *ProductService {
	return &ProductService{products: products, cache: c, productTTL: productTTL, listTTL: listTTL}
}

func normalizePage(page int, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

func (s *ProductService) List(ctx context.Context, q model.ProductQuery) (model.ProductList, error) {
	q.Page, q.Limit = normalizePage(q.Page, q.Limit)
	q.Category = strings.ToLower(strings.TrimSpace(q.Category))

	version := s.cache.Version(ctx, cache.NamespaceProducts)
	key := cache.ProductListKey(version, q.Page, q.Limit, q.Category)

	var cached model.ProductList
	if version != "" && s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	products, total, err := s.products.List(ctx, q)
	if err != nil {
		return model.ProductList{}, fmt.Errorf("list products: %w", err)
	}

	list := model.ProductList{Products: products, Pagination: model.NewPagination(q.Page, q.Limit, total)}
	if version != "" {
		s.cache.Set(ctx, key, list, s.listTTL)
	}

	return list, nil
}

func (s *ProductService) Get(ctx context.Context, id int64) (model.Product, error) {
	if id <= 0 {
		return model.Product{}, apierror.Validation("invalid product id", apierror.FieldError{Field: "id", Message: "must be a positive integer"})
	}

	key := cache.ProductKey(id)

	var cached model.Product
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	product, err := s.products.FindByID(ctx, id)
	if errors.Is(err, model.ErrProductNotFound) {
		return model.Product{}, apierror.NotFound("product not found", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return model.Product{}, fmt.Errorf("get product: %w", err)
	}

	s.cache.Set(ctx, key, product, s.productTTL)
	return product, nil
}
