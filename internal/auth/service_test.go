package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/bodega-erp/bodega/internal/auth"
	_ "github.com/bodega-erp/bodega/testing"
)

func activeUser(t *testing.T, password string) *auth.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	verifiedAt := time.Now()
	return &auth.User{
		ID:              1,
		Email:           "user@test.local",
		PasswordHash:    string(hashed),
		EmailVerifiedAt: &verifiedAt,
		IsActive:        true,
	}
}

func TestAuthenticateVerifiedActiveUser(t *testing.T) {
	repo := &stubRepo{user: activeUser(t, "correctpass")}
	svc := auth.NewService(repo, nil)

	user, err := svc.Authenticate(context.Background(), "user@test.local", "correctpass")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.ID != 1 {
		t.Fatalf("expected user 1, got %d", user.ID)
	}
}

func TestAuthenticateRejectsUnverifiedUser(t *testing.T) {
	u := activeUser(t, "correctpass")
	u.EmailVerifiedAt = nil
	svc := auth.NewService(&stubRepo{user: u}, nil)

	_, err := svc.Authenticate(context.Background(), "user@test.local", "correctpass")
	if !errors.Is(err, auth.ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
}

func TestAuthenticateRejectsDeactivatedUser(t *testing.T) {
	u := activeUser(t, "correctpass")
	u.IsActive = false
	svc := auth.NewService(&stubRepo{user: u}, nil)

	_, err := svc.Authenticate(context.Background(), "user@test.local", "correctpass")
	if !errors.Is(err, auth.ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
}
