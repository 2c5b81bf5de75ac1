package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType tags a token with its purpose so it cannot be used for the other one.
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// TokenLocation is a place in the request where a token may be found.
type TokenLocation string

const (
	LocationCookies TokenLocation = "cookies"
	LocationHeaders TokenLocation = "headers"
)

const (
	DefaultAccessCookie  = "access_token"
	DefaultRefreshCookie = "refresh_token"
)

var signingMethods = map[string]jwt.SigningMethod{
	"HS256": jwt.SigningMethodHS256,
	"HS384": jwt.SigningMethodHS384,
	"HS512": jwt.SigningMethodHS512,
}

// SupportedAlgorithm reports whether alg can be used to sign tokens.
func SupportedAlgorithm(alg string) bool {
	_, ok := signingMethods[alg]
	return ok
}

// Options configures a TokenService. It is built once at startup and not modified afterwards.
type Options struct {
	Algorithm     string
	Secret        []byte
	AccessCookie  string
	RefreshCookie string
	// Locations are probed in order; the first one holding a token wins.
	Locations []TokenLocation
	// Secure marks every cookie written by the service as Secure.
	Secure bool
}

// Claims is the JWT payload issued by TokenService.
type Claims struct {
	Type TokenType `json:"type"`
	jwt.RegisteredClaims
}

type TokenErrorKind int

const (
	// TokenMissing means no configured location carried a token.
	TokenMissing TokenErrorKind = iota + 1
	// TokenInvalid covers bad signatures, malformed tokens, expiry and type mismatch.
	TokenInvalid
)

func (k TokenErrorKind) String() string {
	switch k {
	case TokenMissing:
		return "missing token"
	case TokenInvalid:
		return "invalid token"
	default:
		return "unknown token error"
	}
}

// TokenError is returned by RequireAccess and RequireRefresh.
type TokenError struct {
	Kind TokenErrorKind
	Err  error
}

func (e *TokenError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *TokenError) Unwrap() error { return e.Err }

// TokenKind returns the kind of a *TokenError in err's chain, or 0.
func TokenKind(err error) TokenErrorKind {
	var tokErr *TokenError
	if errors.As(err, &tokErr) {
		return tokErr.Kind
	}
	return 0
}

var errWrongType = errors.New("wrong token type")

// ErrNoSubject is wrapped by a TokenError when a validly signed token carries no subject.
var ErrNoSubject = errors.New("token has no subject")

// TokenService issues and validates signed access and refresh tokens.
type TokenService struct {
	opts   Options
	method jwt.SigningMethod
	parser *jwt.Parser
}

func NewTokenService(opts Options) (*TokenService, error) {
	method, ok := signingMethods[opts.Algorithm]
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", opts.Algorithm)
	}
	if len(opts.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	if opts.AccessCookie == "" {
		opts.AccessCookie = DefaultAccessCookie
	}
	if opts.RefreshCookie == "" {
		opts.RefreshCookie = DefaultRefreshCookie
	}
	if len(opts.Locations) == 0 {
		opts.Locations = []TokenLocation{LocationCookies, LocationHeaders}
	}
	for _, loc := range opts.Locations {
		if loc != LocationCookies && loc != LocationHeaders {
			return nil, fmt.Errorf("unknown token location %q", loc)
		}
	}

	return &TokenService{
		opts:   opts,
		method: method,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{method.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
		),
	}, nil
}

func (s *TokenService) IssueAccess(subject string, ttl time.Duration) (string, error) {
	return s.issue(subject, AccessToken, ttl)
}

func (s *TokenService) IssueRefresh(subject string, ttl time.Duration) (string, error) {
	return s.issue(subject, RefreshToken, ttl)
}

func (s *TokenService) issue(subject string, typ TokenType, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.opts.Secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

// RequireAccess locates an access token in r and returns its subject.
func (s *TokenService) RequireAccess(r *http.Request) (string, error) {
	return s.require(r, AccessToken)
}

// RequireRefresh locates a refresh token in r and returns its subject.
func (s *TokenService) RequireRefresh(r *http.Request) (string, error) {
	return s.require(r, RefreshToken)
}

func (s *TokenService) require(r *http.Request, typ TokenType) (string, error) {
	raw, ok := s.locate(r, typ)
	if !ok {
		return "", &TokenError{Kind: TokenMissing}
	}
	claims, err := s.Parse(raw, typ)
	if err != nil {
		return "", &TokenError{Kind: TokenInvalid, Err: err}
	}
	return claims.Subject, nil
}

// Parse verifies raw and checks that it was issued as typ.
func (s *TokenService) Parse(raw string, typ TokenType) (*Claims, error) {
	claims := &Claims{}
	if _, err := s.parser.ParseWithClaims(raw, claims, s.keyFunc); err != nil {
		return nil, err
	}
	if claims.Type != typ {
		return nil, fmt.Errorf("%w: got %q, want %q", errWrongType, claims.Type, typ)
	}
	if claims.Subject == "" {
		return nil, ErrNoSubject
	}
	return claims, nil
}

func (s *TokenService) keyFunc(*jwt.Token) (any, error) {
	return s.opts.Secret, nil
}

func (s *TokenService) locate(r *http.Request, typ TokenType) (string, bool) {
	for _, loc := range s.opts.Locations {
		switch loc {
		case LocationCookies:
			if c, err := r.Cookie(s.cookieName(typ)); err == nil && c.Value != "" {
				return c.Value, true
			}
		case LocationHeaders:
			if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
				return token, true
			}
		}
	}
	return "", false
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func (s *TokenService) cookieName(typ TokenType) string {
	if typ == RefreshToken {
		return s.opts.RefreshCookie
	}
	return s.opts.AccessCookie
}

// SetAccessCookie stores an access token in its HttpOnly cookie.
func (s *TokenService) SetAccessCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	s.SetCookie(w, s.opts.AccessCookie, token, ttl, true)
}

// SetRefreshCookie stores a refresh token in its HttpOnly cookie.
func (s *TokenService) SetRefreshCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	s.SetCookie(w, s.opts.RefreshCookie, token, ttl, true)
}

// SetCookie writes a cookie whose Max-Age and Expires both equal ttl.
// A non-positive ttl deletes the cookie.
func (s *TokenService) SetCookie(w http.ResponseWriter, name, value string, ttl time.Duration, httpOnly bool) {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: httpOnly,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl > 0 {
		c.MaxAge = int(ttl.Seconds())
		c.Expires = time.Now().Add(ttl).UTC()
	} else {
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0).UTC()
	}
	http.SetCookie(w, c)
}

// Clear unsets the access and refresh cookies.
func (s *TokenService) Clear(w http.ResponseWriter) {
	s.SetCookie(w, s.opts.AccessCookie, "", 0, true)
	s.SetCookie(w, s.opts.RefreshCookie, "", 0, true)
}
