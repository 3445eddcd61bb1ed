// Package identity manages storefront accounts: email and password sign
// up, sessions and the editable profile. Carts and checkout do not
// depend on it.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/toxic-toad/aquaventure/internal/domain"
	"github.com/toxic-toad/aquaventure/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

const sessionKeyPrefix = "session:"

var formMessages = map[string]string{
	"name.min":                 "Name must be at least 2 characters.",
	"email.required":           "Invalid email address.",
	"email.email":              "Invalid email address.",
	"password.min":             "Password must be at least 6 characters.",
	"password.maxbytes":        "Password must be at most 72 bytes.",
	"confirm_password.eqfield": "Passwords don't match",
	"user_id.min":              "User ID must be at least 4 characters.",
	"full_name.required":       "Full name cannot be blank.",
	"phone_number.len":         "Phone number must be exactly 10 digits.",
	"phone_number.number":      "Phone number must be exactly 10 digits.",
	"gender.oneof":             "Gender must be Male or Female.",
}

type SignUpRequest struct {
	Name            string `json:"name" validate:"min=2"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"min=6,maxbytes=72"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=Password"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6"`
}

// ProfileUpdate changes only the fields that are set.
type ProfileUpdate struct {
	UserID      *string        `json:"user_id,omitempty"`
	FullName    *string        `json:"full_name,omitempty"`
	Email       *string        `json:"email,omitempty"`
	PhoneNumber *string        `json:"phone_number,omitempty"`
	ImageURL    *string        `json:"image_url,omitempty"`
	Gender      *domain.Gender `json:"gender,omitempty"`
}

type Session struct {
	Token     string    `json:"token"`
	AccountID string    `json:"account_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Config struct {
	SessionTTL time.Duration
	BcryptCost int
}

type Service struct {
	repo     AccountRepository
	sessions storage.KV
	validate *validator.Validate
	cfg      Config
	now      func() time.Time
	log      zerolog.Logger
}

func NewService(repo AccountRepository, sessions storage.KV, cfg Config, log zerolog.Logger) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:     repo,
		sessions: sessions,
		validate: domain.NewValidator(),
		cfg:      cfg,
		now:      time.Now,
		log:      log,
	}
}

// SignUp creates an account and signs it in.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (domain.Account, Session, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if err := s.check(req); err != nil {
		return domain.Account{}, Session{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
	if err != nil {
		return domain.Account{}, Session{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	id := uuid.NewString()
	account := domain.Account{
		ID:           id,
		Email:        req.Email,
		PasswordHash: hash,
		Profile: domain.Profile{
			UserID:   id,
			FullName: req.Name,
			Email:    req.Email,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return domain.Account{}, Session{}, err
	}

	session, err := s.startSession(ctx, account.ID)
	if err != nil {
		return domain.Account{}, Session{}, err
	}

	s.log.Info().Str("account_id", account.ID).Msg("account created")
	return account, session, nil
}

func (s *Service) SignIn(ctx context.Context, req SignInRequest) (domain.Account, Session, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.check(req); err != nil {
		return domain.Account{}, Session{}, err
	}

	account, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		return domain.Account{}, Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(req.Password)); err != nil {
		return domain.Account{}, Session{}, ErrWrongPassword
	}

	session, err := s.startSession(ctx, account.ID)
	if err != nil {
		return domain.Account{}, Session{}, err
	}
	return account, session, nil
}

// SignOut ends a session. Unknown tokens are ignored.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if err := s.sessions.Delete(ctx, sessionKeyPrefix+token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Authenticate resolves a session token to its account.
func (s *Service) Authenticate(ctx context.Context, token string) (domain.Account, error) {
	if token == "" {
		return domain.Account{}, ErrSessionNotFound
	}

	data, err := s.sessions.Get(ctx, sessionKeyPrefix+token)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Account{}, ErrSessionNotFound
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("read session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		s.log.Warn().Err(err).Msg("malformed session, discarding")
		_ = s.sessions.Delete(ctx, sessionKeyPrefix+token)
		return domain.Account{}, ErrSessionNotFound
	}
	if !s.now().Before(session.ExpiresAt) {
		_ = s.sessions.Delete(ctx, sessionKeyPrefix+token)
		return domain.Account{}, ErrSessionNotFound
	}

	account, err := s.repo.FindByID(ctx, session.AccountID)
	if errors.Is(err, ErrAccountNotFound) {
		return domain.Account{}, ErrSessionNotFound
	}
	return account, err
}

func (s *Service) UpdateProfile(ctx context.Context, accountID string, upd ProfileUpdate) (domain.Account, error) {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return domain.Account{}, err
	}

	p := account.Profile
	if upd.UserID != nil {
		p.UserID = strings.TrimSpace(*upd.UserID)
	}
	if upd.FullName != nil {
		p.FullName = strings.TrimSpace(*upd.FullName)
	}
	if upd.Email != nil {
		p.Email = normalizeEmail(*upd.Email)
	}
	if upd.PhoneNumber != nil {
		p.PhoneNumber = strings.TrimSpace(*upd.PhoneNumber)
	}
	if upd.ImageURL != nil {
		p.ImageURL = strings.TrimSpace(*upd.ImageURL)
	}
	if upd.Gender != nil {
		p.Gender = *upd.Gender
	}
	if err := s.check(p); err != nil {
		return domain.Account{}, err
	}

	account.Profile = p
	account.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, account); err != nil {
		return domain.Account{}, err
	}
	return account, nil
}

func (s *Service) startSession(ctx context.Context, accountID string) (Session, error) {
	session := Session{
		Token:     uuid.NewString(),
		AccountID: accountID,
		ExpiresAt: s.now().Add(s.cfg.SessionTTL).UTC(),
	}
	data, err := json.Marshal(session)
	if err != nil {
		return Session{}, fmt.Errorf("marshal session: %w", err)
	}
	if err := s.sessions.Set(ctx, sessionKeyPrefix+session.Token, data); err != nil {
		return Session{}, fmt.Errorf("store session: %w", err)
	}
	return session, nil
}

func (s *Service) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	fields, ok := domain.FieldMessages(err, formMessages, "Invalid value.")
	if !ok {
		return err
	}
	return &FormError{Fields: fields}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
