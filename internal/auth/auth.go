// Package auth handles user registration, email verification and
// session-based login for the storefront.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/cestlavie/bakery/internal/notify"
	"github.com/cestlavie/bakery/internal/storage"
	"github.com/cestlavie/bakery/pkg/types"
)

// Service exposes registration, verification and login.
type Service struct {
	store          storage.Storage
	sink           notify.Sink
	logger         *slog.Logger
	storageTimeout time.Duration
	// verifyBaseURL prefixes the verification link in the welcome mail,
	// e.g. "https://bakery.example/api/verify".
	verifyBaseURL string
}

// New creates an auth service over the given store and notification sink.
func New(store storage.Storage, sink notify.Sink, verifyBaseURL string, storageTimeout time.Duration, logger *slog.Logger) *Service {
	if storageTimeout <= 0 {
		storageTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:          store,
		sink:           sink,
		logger:         logger,
		storageTimeout: storageTimeout,
		verifyBaseURL:  verifyBaseURL,
	}
}

// RegisterRequest is the signup payload.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

// Register creates a client account in pending verification state and mails
// the verification link. The password is stored as a bcrypt hash only.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*types.User, error) {
	if req.Name == "" || req.Email == "" {
		return nil, fmt.Errorf("%w: name and email required", types.ErrValidation)
	}
	if !strings.Contains(req.Email, "@") {
		return nil, fmt.Errorf("%w: invalid email address", types.ErrValidation)
	}
	if len(req.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", types.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &types.User{
		Name:              req.Name,
		Email:             req.Email,
		PasswordHash:      string(hash),
		Phone:             req.Phone,
		Role:              types.RoleClient,
		Verification:      types.VerificationPending,
		VerificationToken: uuid.NewString(),
	}

	sctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	if err := s.store.CreateUser(sctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: %s", types.ErrEmailTaken, req.Email)
		}
		return nil, storageErr(err)
	}

	subject, body := verificationMail(user.Name, s.verifyBaseURL, user.VerificationToken)
	s.send(ctx, user.Email, subject, body)

	s.logger.InfoContext(ctx, "user registered", "user", user.ID, "email", user.Email)
	return user, nil
}

// VerifyEmail consumes a verification token and marks the account verified.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*types.User, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: verification token required", types.ErrValidation)
	}

	sctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	user, err := s.store.VerifyUser(sctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown verification token", types.ErrUserNotFound)
		}
		return nil, storageErr(err)
	}
	s.logger.InfoContext(ctx, "user verified", "user", user.ID)
	return user, nil
}

// Login checks credentials and opens a session. Unverified accounts cannot
// log in. The error is the same for a missing account and a wrong password.
func (s *Service) Login(ctx context.Context, email, password string) (*types.Session, *types.User, error) {
	sctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	user, err := s.store.GetUserByEmail(sctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, types.ErrInvalidCredentials
		}
		return nil, nil, storageErr(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, types.ErrInvalidCredentials
	}
	if user.Verification != types.VerificationVerified {
		return nil, nil, fmt.Errorf("%w: account not verified", types.ErrConflict)
	}

	session := &types.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateSession(sctx, session); err != nil {
		return nil, nil, storageErr(err)
	}
	return session, user, nil
}

// Logout destroys a session. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	sctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	if err := s.store.DeleteSession(sctx, token); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return storageErr(err)
	}
	return nil
}

// Resolve maps a session token to its user. Used by the HTTP middleware.
func (s *Service) Resolve(ctx context.Context, token string) (*types.User, error) {
	if token == "" {
		return nil, types.ErrUnauthenticated
	}

	sctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	session, err := s.store.GetSession(sctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, types.ErrUnauthenticated
		}
		return nil, storageErr(err)
	}
	user, err := s.store.GetUserByID(sctx, session.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, types.ErrUnauthenticated
		}
		return nil, storageErr(err)
	}
	return user, nil
}

func (s *Service) send(ctx context.Context, to, subject, body string) {
	if err := s.sink.Send(ctx, to, subject, body); err != nil {
		s.logger.ErrorContext(ctx, "notification failed",
			"to", to,
			"subject", subject,
			"error", fmt.Errorf("%w: %v", types.ErrNotification, err),
		)
	}
}

func verificationMail(name, baseURL, token string) (subject, body string) {
	subject = "Confirm your C'est la Vie account"
	body = fmt.Sprintf(
		"Dear %s,\n\nwelcome to C'est la Vie! Confirm your email address by visiting:\n\n%s?token=%s\n\nSee you soon,\nthe C'est la Vie bakery",
		name, baseURL, token)
	return subject, body
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", types.ErrStorage, err)
}
