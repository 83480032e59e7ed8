package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"go-shop-api/internal/database"
	"go-shop-api/internal/model"
)

type ProfileRepository struct {
	db database.DBTX
}

func NewProfileRepository(db database.DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) FindByUserID(ctx context.Context, userID int64) (model.Profile, error) {
	var p model.Profile
	err := r.db.QueryRow(ctx,
		`SELECT user_id, first_name, last_name, phone, bio, avatar_url, created_at, updated_at
		 FROM profiles WHERE user_id = $1`, userID).
		Scan(&p.UserID, &p.FirstName, &p.LastName, &p.Phone, &p.Bio, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Profile{}, model.ErrProfileNotFound
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("find profile: %w", err)
	}
	return p, nil
}

// Upsert creates the profile on first write. Nil fields in the request keep
// their stored value.
func (r *ProfileRepository) Upsert(ctx context.Context, userID int64, req model.UpdateProfileRequest) (model.Profile, error) {
	var p model.Profile
	err := r.db.QueryRow(ctx,
		`INSERT INTO profiles (user_id, first_name, last_name, phone, bio, avatar_url)
		 VALUES ($1, COALESCE($2, ''), COALESCE($3, ''), COALESCE($4, ''), COALESCE($5, ''), COALESCE($6, ''))
		 ON CONFLICT (user_id) DO UPDATE SET
		     first_name = COALESCE($2, profiles.first_name),
		     last_name  = COALESCE($3, profiles.last_name),
		     phone      = COALESCE($4, profiles.phone),
		     bio        = COALESCE($5, profiles.bio),
		     avatar_url = COALESCE($6, profiles.avatar_url),
		     updated_at = NOW()
		 RETURNING user_id, first_name, last_name, phone, bio, avatar_url, created_at, updated_at`,
		userID, req.FirstName, req.LastName, req.Phone, req.Bio, req.AvatarURL).
		Scan(&p.UserID, &p.FirstName, &p.LastName, &p.Phone, &p.Bio, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.Profile{}, fmt.Errorf("upsert profile: %w", err)
	}
	return p, nil
}
