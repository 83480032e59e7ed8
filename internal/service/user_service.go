package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-shop-api/internal/cache"
	"go-shop-api/internal/event"
	"go-shop-api/internal/model"
)

const dashboardRecentOrders = 5

type ProfileStore interface {
	FindByUserID(ctx context.Context, userID int64) (model.Profile, error)
	Upsert(ctx context.Context, userID int64, req model.UpdateProfileRequest) (model.Profile, error)
}

type OrderStatsReader interface {
	StatsByUser(ctx context.Context, userID int64) (model.OrderStats, error)
	RecentByUser(ctx context.Context, userID int64, limit int) ([]model.Order, error)
}

type UserService struct {
	profiles     ProfileStore
	orders       OrderStatsReader
	cache        Cache
	bus          event.Bus
	profileTTL   time.Duration
	dashboardTTL time.Duration
}

func NewUserService(profiles ProfileStore, orders OrderStatsReader, c Cache, bus event.Bus, profileTTL time.Duration, dashboardTTL time.Duration) *UserService {
	return &UserService{
		profiles:     profiles,
		orders:       orders,
		cache:        c,
		bus:          bus,
		profileTTL:   profileTTL,
		dashboardTTL: dashboardTTL,
	}
}

func (s *UserService) GetProfile(ctx context.Context, user model.AuthUser) (model.ProfileView, error) {
	key := cache.ProfileKey(user.ID)

	var cached model.ProfileView
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	profile, err := s.loadProfile(ctx, user.ID)
	if err != nil {
		return model.ProfileView{}, err
	}

	view := model.ProfileView{User: user, Profile: profile}
	s.cache.Set(ctx, key, view, s.profileTTL)
	return view, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, user model.AuthUser, req model.UpdateProfileRequest) (model.ProfileView, error) {
	profile, err := s.profiles.Upsert(ctx, user.ID, req)
	if err != nil {
		return model.ProfileView{}, fmt.Errorf("update profile: %w", err)
	}

	s.cache.Delete(ctx, cache.ProfileKey(user.ID), cache.DashboardKey(user.ID))
	if s.bus != nil {
		s.bus.Publish(event.New(event.TypeProfileUpdated, user.ID, cache.ProfileKey(user.ID), nil))
	}

	return model.ProfileView{User: user, Profile: &profile}, nil
}

func (s *UserService) Dashboard(ctx context.Context, user model.AuthUser) (model.Dashboard, error) {
	key := cache.DashboardKey(user.ID)

	var cached model.Dashboard
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	profile, err := s.loadProfile(ctx, user.ID)
	if err != nil {
		return model.Dashboard{}, err
	}

	stats, err := s.orders.StatsByUser(ctx, user.ID)
	if err != nil {
		return model.Dashboard{}, fmt.Errorf("dashboard stats: %w", err)
	}

	recent, err := s.orders.RecentByUser(ctx, user.ID, dashboardRecentOrders)
	if err != nil {
		return model.Dashboard{}, fmt.Errorf("dashboard recent orders: %w", err)
	}

	dashboard := model.Dashboard{User: user, Profile: profile, Stats: stats, RecentOrders: recent}
	s.cache.Set(ctx, key, dashboard, s.dashboardTTL)
	return dashboard, nil
}

func (s *UserService) loadProfile(ctx context.Context, userID int64) (*model.Profile, error) {
	profile, err := s.profiles.FindByUserID(ctx, userID)
	if errors.Is(err, model.ErrProfileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &profile, nil
}
