package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/GiorgiUbiria/team_ledger/internal/apperr"
	"github.com/GiorgiUbiria/team_ledger/internal/models"
	"github.com/GiorgiUbiria/team_ledger/internal/store"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 8

// ErrInvalidCredentials is returned by Login for an unknown email or a wrong
// password alike.
var ErrInvalidCredentials = errors.New("invalid email or password")

type UserService struct {
	store  store.Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperr.Validation("email %q is not valid", email)
	}
	return email, nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Validation("name is required")
	}
	if utf8.RuneCountInString(name) > 50 {
		return "", apperr.Validation("name must be at most 50 characters")
	}
	return name, nil
}

func hashPassword(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", apperr.Validation("password must be at least %d characters", minPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apperr.Validation("password cannot be hashed: %v", err)
	}
	return string(hash), nil
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	name, err := validateName(in.Name)
	if err != nil {
		return models.User{}, err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return models.User{}, err
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{Name: name, Email: email, Password: hash}
	if err := s.store.CreateUser(ctx, &user); err != nil {
		if apperr.KindOf(err) == apperr.KindConflict {
			return models.User{}, apperr.Conflict("email %s is already registered", email)
		}
		return models.User{}, err
	}
	return user, nil
}

// Login verifies the credentials and returns a signed token for the user.
func (s *UserService) Login(ctx context.Context, email, password string) (string, models.User, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return "", models.User{}, ErrInvalidCredentials
		}
		return "", models.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", models.User{}, ErrInvalidCredentials
	}
	token, err := s.IssueToken(user)
	if err != nil {
		return "", models.User{}, err
	}
	return token, user, nil
}

func (s *UserService) IssueToken(user models.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub": uint64(user.ID),
		"exp": now.Add(s.ttl).Unix(),
		"iat": now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *UserService) Get(ctx context.Context, id uint64) (models.User, error) {
	return s.store.GetUser(ctx, id)
}

func (s *UserService) UpdateProfile(ctx context.Context, id uint64, name string) (models.User, error) {
	name, err := validateName(name)
	if err != nil {
		return models.User{}, err
	}
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	user.Name = name
	if err := s.store.UpdateUser(ctx, &user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (s *UserService) ChangePassword(ctx context.Context, id uint64, oldPassword, newPassword string) error {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return apperr.Forbidden("current password is incorrect")
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	user.Password = hash
	return s.store.UpdateUser(ctx, &user)
}
