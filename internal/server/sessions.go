package server

import (
	"context"
	"errors"
	"time"

	"guidance-desk/internal/db"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var errSessionInvalid = errors.New("session is invalid or expired")

// sessionStore issues bearer tokens backed by the sessions table.
type sessionStore struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

func newSessionStore(conn *gorm.DB, ttl time.Duration, now func() time.Time) *sessionStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &sessionStore{db: conn, ttl: ttl, now: now}
}

func (s *sessionStore) Create(ctx context.Context, userID uint) (db.Session, error) {
	now := s.now().UTC()
	record := db.Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return db.Session{}, err
	}
	return record, nil
}

// Lookup returns the active user behind token. Expired sessions are removed.
func (s *sessionStore) Lookup(ctx context.Context, token string) (*db.User, error) {
	if _, err := uuid.Parse(token); err != nil {
		return nil, errSessionInvalid
	}
	var record db.Session
	err := s.db.WithContext(ctx).Preload("User").Where("token = ?", token).Take(&record).Error
	if db.IsNotFound(err) {
		return nil, errSessionInvalid
	}
	if err != nil {
		return nil, err
	}
	if !record.ExpiresAt.After(s.now()) {
		_ = s.Delete(ctx, token)
		return nil, errSessionInvalid
	}
	if !record.User.IsActive {
		return nil, errSessionInvalid
	}
	return &record.User, nil
}

func (s *sessionStore) Delete(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).Where("token = ?", token).Delete(&db.Session{}).Error
}

func (s *sessionStore) DeleteForUser(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&db.Session{}).Error
}

// PurgeExpired drops every expired session and reports how many were removed.
func (s *sessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at <= ?", s.now().UTC()).Delete(&db.Session{})
	return result.RowsAffected, result.Error
}
