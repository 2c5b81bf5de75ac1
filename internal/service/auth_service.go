package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"auth-api/internal/auth"
	"auth-api/internal/domain"
	"auth-api/internal/repository"
)

// LoggedInCookie is a non-secret marker cookie the front end reads to know
// whether a session is active.
const LoggedInCookie = "logged_in"

// PasswordHasher hashes and verifies stored credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// AuthService describes the registration, session and guard operations.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.UserView, error)
	Login(ctx context.Context, w http.ResponseWriter, name, password string) (*LoginResult, error)
	Refresh(ctx context.Context, w http.ResponseWriter, r *http.Request) (*RefreshResult, error)
	Logout(ctx context.Context, w http.ResponseWriter, userID uuid.UUID) error
	RequireUser(ctx context.Context, r *http.Request) (uuid.UUID, error)
	RequireSuperuser(ctx context.Context, r *http.Request) (uuid.UUID, error)
	GetSelf(ctx context.Context, userID uuid.UUID) (*domain.UserView, error)
}

type RegisterInput struct {
	Name     string
	Email    *string
	Password string
}

type LoginResult struct {
	IsSuperuser bool
	AccessToken string
}

type RefreshResult struct {
	AccessToken string
}

// Config carries the token lifetimes used by the auth flow.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type authService struct {
	users  repository.UserRepository
	hasher PasswordHasher
	tokens *auth.TokenService
	cfg    Config
	log    *logrus.Entry
}

func NewAuthService(users repository.UserRepository, hasher PasswordHasher, tokens *auth.TokenService, cfg Config, logger *logrus.Logger) AuthService {
	if logger == nil {
		logger = logrus.New()
	}
	return &authService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		cfg:    cfg,
		log:    logger.WithField("component", "auth"),
	}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*domain.UserView, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, &Error{Kind: KindBadRequest, Detail: "name is required"}
	}

	if _, err := s.users.GetByName(ctx, name); err == nil {
		return nil, &Error{Kind: KindConflict, Detail: detailAccountExists}
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         name,
		PasswordHash: hash,
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		user.Email = &email
	}

	// the pre-check above can race with a concurrent registration
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, &Error{Kind: KindConflict, Detail: detailAccountExists, Err: err}
		}
		return nil, err
	}

	s.log.WithField("user_id", user.ID).Info("user registered")
	return user.View(), nil
}

func (s *authService) Login(ctx context.Context, w http.ResponseWriter, name, password string) (*LoginResult, error) {
	user, err := s.users.GetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	subject := user.ID.String()
	access, err := s.tokens.IssueAccess(subject, s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh(subject, s.cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}

	s.tokens.SetAccessCookie(w, access, s.cfg.AccessTTL)
	s.tokens.SetRefreshCookie(w, refresh, s.cfg.RefreshTTL)
	s.tokens.SetCookie(w, LoggedInCookie, "true", s.cfg.AccessTTL, false)

	s.log.WithField("user_id", user.ID).Info("user logged in")
	return &LoginResult{
		IsSuperuser: user.IsSuperuser,
		AccessToken: access,
	}, nil
}

func (s *authService) Refresh(ctx context.Context, w http.ResponseWriter, r *http.Request) (*RefreshResult, error) {
	subject, err := s.tokens.RequireRefresh(r)
	if err != nil {
		if auth.TokenKind(err) == auth.TokenMissing {
			return nil, &Error{Kind: KindBadRequest, Reason: ReasonMissingToken, Detail: detailRefreshRequired}
		}
		if errors.Is(err, auth.ErrNoSubject) {
			return nil, unauthorized(ReasonInvalidToken, detailRefreshFailed, err)
		}
		detail := detailRefreshFailed
		var tokErr *auth.TokenError
		if errors.As(err, &tokErr) && tokErr.Err != nil {
			detail = tokErr.Err.Error()
		}
		return nil, &Error{Kind: KindBadRequest, Reason: ReasonInvalidToken, Detail: detail, Err: err}
	}

	id, err := uuid.Parse(subject)
	if err != nil {
		return nil, unauthorized(ReasonInvalidToken, detailRefreshFailed, err)
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, unauthorized(ReasonUserNotFound, detailUserGone, err)
		}
		return nil, err
	}

	access, err := s.tokens.IssueAccess(user.ID.String(), s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	s.tokens.SetAccessCookie(w, access, s.cfg.AccessTTL)
	s.tokens.SetCookie(w, LoggedInCookie, "true", s.cfg.AccessTTL, false)

	return &RefreshResult{AccessToken: access}, nil
}

// Logout expects userID to come from RequireUser.
func (s *authService) Logout(ctx context.Context, w http.ResponseWriter, userID uuid.UUID) error {
	s.tokens.Clear(w)
	s.tokens.SetCookie(w, LoggedInCookie, "", 0, false)
	s.log.WithField("user_id", userID).Info("user logged out")
	return nil
}

func (s *authService) RequireUser(ctx context.Context, r *http.Request) (uuid.UUID, error) {
	user, err := s.resolve(ctx, r)
	if err != nil {
		return uuid.Nil, err
	}
	return user.ID, nil
}

func (s *authService) RequireSuperuser(ctx context.Context, r *http.Request) (uuid.UUID, error) {
	user, err := s.resolve(ctx, r)
	if err != nil {
		return uuid.Nil, err
	}
	if !user.IsSuperuser {
		s.log.WithField("user_id", user.ID).Warn("superuser access denied")
		return uuid.Nil, unauthorized(ReasonNotSuperuser, detailNotSuperuser, nil)
	}
	return user.ID, nil
}

func (s *authService) resolve(ctx context.Context, r *http.Request) (*domain.User, error) {
	subject, err := s.tokens.RequireAccess(r)
	if err != nil {
		if auth.TokenKind(err) == auth.TokenMissing {
			return nil, unauthorized(ReasonMissingToken, detailNotAuthenticated, err)
		}
		s.log.WithError(err).Warn("access token rejected")
		return nil, unauthorized(ReasonInvalidToken, detailTokenInvalid, err)
	}

	id, err := uuid.Parse(subject)
	if err != nil {
		return nil, unauthorized(ReasonInvalidToken, detailTokenInvalid, fmt.Errorf("parse subject: %w", err))
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, unauthorized(ReasonUserNotFound, detailUserGone, err)
		}
		return nil, err
	}
	return user, nil
}

func (s *authService) GetSelf(ctx context.Context, userID uuid.UUID) (*domain.UserView, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, unauthorized(ReasonUserNotFound, detailUserGone, err)
		}
		return nil, err
	}
	return user.View(), nil
}
