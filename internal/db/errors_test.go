package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestIsDuplicateKey(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm translated", fmt.Errorf("create: %w", gorm.ErrDuplicatedKey), true},
		{"postgres unique", &pgconn.PgError{Code: "23505"}, true},
		{"postgres other", &pgconn.PgError{Code: "23503"}, false},
		{"sqlite text", errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)"), true},
		{"other", errors.New("connection refused"), false},
	}
	for _, tc := range cases {
		if got := IsDuplicateKey(tc.err); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestIsDuplicateKeyFromInsert(t *testing.T) {
	conn := openTestDB(t)
	user := User{Username: "counselor", Email: "c@school.test", FullName: "C", PasswordHash: "x", Role: RoleCounselor, IsActive: true}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	dup := User{Username: "counselor", Email: "other@school.test", FullName: "C", PasswordHash: "x", Role: RoleCounselor, IsActive: true}
	err := conn.Create(&dup).Error
	if !IsDuplicateKey(err) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
	if !IsNotFound(conn.Take(&User{}, 9999).Error) {
		t.Fatalf("expected not found")
	}
}
