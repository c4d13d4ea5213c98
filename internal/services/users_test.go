package services

import (
	"errors"
	"testing"

	"github.com/GiorgiUbiria/team_ledger/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
)

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Users.Register(f.ctx, RegisterInput{Name: "Dup", Email: "OWNER@example.com", Password: "long enough"})
	wantKind(t, err, apperr.KindConflict)
	_, err = f.svc.Users.Register(f.ctx, RegisterInput{Name: "Short", Email: "short@example.com", Password: "1234"})
	wantKind(t, err, apperr.KindValidation)
	_, err = f.svc.Users.Register(f.ctx, RegisterInput{Name: "Bad", Email: "not-an-email", Password: "long enough"})
	wantKind(t, err, apperr.KindValidation)

	if f.owner.Password == "correct horse" {
		t.Fatal("password stored in plaintext")
	}

	token, user, err := f.svc.Users.Login(f.ctx, " Owner@Example.com ", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.ID != f.owner.ID {
		t.Fatalf("logged in as %d", user.ID)
	}
	parsed, err := jwt.Parse(token,
		func(*jwt.Token) (any, error) { return []byte("test-secret"), nil },
		jwt.WithTimeFunc(f.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if sub, _ := claims["sub"].(float64); uint64(sub) != uid(f.owner) {
		t.Fatalf("sub = %v", claims["sub"])
	}

	for _, tc := range [][2]string{{"owner@example.com", "wrong password"}, {"ghost@example.com", "correct horse"}} {
		if _, _, err := f.svc.Users.Login(f.ctx, tc[0], tc[1]); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Login(%s) error = %v, want invalid credentials", tc[0], err)
		}
	}
}

func TestProfileAndPassword(t *testing.T) {
	f := newFixture(t)

	u, err := f.svc.Users.UpdateProfile(f.ctx, uid(f.member), "  Mia M. ")
	if err != nil || u.Name != "Mia M." {
		t.Fatalf("UpdateProfile() = %q, %v", u.Name, err)
	}

	err = f.svc.Users.ChangePassword(f.ctx, uid(f.member), "nope", "brand new password")
	wantKind(t, err, apperr.KindForbidden)
	if err := f.svc.Users.ChangePassword(f.ctx, uid(f.member), "correct horse", "brand new password"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := f.svc.Users.Login(f.ctx, f.member.Email, "brand new password"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}
