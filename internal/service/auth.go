package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"smartline/internal/model"
	"smartline/internal/storage"
)

// AuthService registers members and authenticates sessions. The operator
// account is a configured credential pair checked by plain equality; it is
// not hardened and is expected to be replaced. The role attached to a
// profile here is fixed for the lifetime of the session token.
type AuthService struct {
	store     storage.Gateway
	adminUser string
	adminPass string
}

func NewAuthService(store storage.Gateway, adminUser, adminPass string) *AuthService {
	return &AuthService{store: store, adminUser: adminUser, adminPass: adminPass}
}

func (s *AuthService) users(ctx context.Context) ([]model.User, error) {
	records, err := s.store.Read(ctx, storage.EntityUsers)
	if err != nil {
		return nil, err
	}
	return storage.Decode[model.User](records)
}

// Register creates a member account. Address is required so orders without a
// parsed address have somewhere to deliver to.
func (s *AuthService) Register(ctx context.Context, username, password, address string) (model.UserProfile, error) {
	if username == s.adminUser {
		return model.UserProfile{}, ErrReservedUsername
	}

	users, err := s.users(ctx)
	if err != nil {
		return model.UserProfile{}, err
	}
	for _, u := range users {
		if u.Username == username {
			return model.UserProfile{}, ErrUserExists
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.UserProfile{}, err
	}

	user := model.User{
		Username:     username,
		Role:         model.RoleMember,
		Address:      address,
		PasswordHash: hash,
	}
	doc, err := storage.ToRecord(user)
	if err != nil {
		return model.UserProfile{}, err
	}
	if err := s.store.Write(ctx, storage.Insert{Kind: storage.EntityUsers, Record: doc}); err != nil {
		return model.UserProfile{}, err
	}
	return user.Profile(), nil
}

// Authenticate checks the configured operator pair first, then registered
// members.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (model.UserProfile, error) {
	if username == s.adminUser {
		if password == s.adminPass {
			return model.UserProfile{Username: username, Role: model.RoleAdmin}, nil
		}
		return model.UserProfile{}, ErrInvalidCredentials
	}

	users, err := s.users(ctx)
	if err != nil {
		return model.UserProfile{}, err
	}
	for _, u := range users {
		if u.Username != username {
			continue
		}
		if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
			return model.UserProfile{}, ErrInvalidCredentials
		}
		return u.Profile(), nil
	}
	return model.UserProfile{}, ErrInvalidCredentials
}

// IsAuthError reports whether the error is a user-facing credential problem
// rather than a backend failure.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrUserExists) ||
		errors.Is(err, ErrReservedUsername)
}
