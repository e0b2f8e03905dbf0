package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/siacollections/storefront/internal/domain"
	"github.com/siacollections/storefront/internal/platform/auth"
	"github.com/siacollections/storefront/internal/platform/config"
	"github.com/siacollections/storefront/internal/repositories"
)

var (
	// ErrAuthInvalidCredentials indicates the email/password pair was rejected.
	ErrAuthInvalidCredentials = errors.New("auth service: invalid credentials")
	// ErrAuthSessionExpired indicates the session token is unknown or expired.
	ErrAuthSessionExpired = errors.New("auth service: session expired")
	// ErrAuthUnavailable indicates the auth backend cannot fulfil the request.
	ErrAuthUnavailable = errors.New("auth service: unavailable")
)

// PasswordAuthenticator checks an email/password pair against one credential
// backend. Rejected credentials are reported through ErrAuthInvalidCredentials
// so callers can fall through to the next backend.
type PasswordAuthenticator interface {
	Authenticate(ctx context.Context, email, password string) (domain.AdminIdentity, error)
}

// FirebaseAuthenticator validates credentials against Firebase Authentication
// and admits only users carrying the admin role claim.
type FirebaseAuthenticator struct {
	verifier *auth.FirebaseVerifier
}

// NewFirebaseAuthenticator wraps a Firebase verifier.
func NewFirebaseAuthenticator(verifier *auth.FirebaseVerifier) (*FirebaseAuthenticator, error) {
	if verifier == nil {
		return nil, errors.New("firebase authenticator: verifier is required")
	}
	return &FirebaseAuthenticator{verifier: verifier}, nil
}

// Authenticate signs the user in and checks the admin role claim.
func (a *FirebaseAuthenticator) Authenticate(ctx context.Context, email, password string) (domain.AdminIdentity, error) {
	record, err := a.verifier.SignInWithPassword(ctx, email, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return domain.AdminIdentity{}, ErrAuthInvalidCredentials
		}
		return domain.AdminIdentity{}, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}
	if !hasAdminClaim(record.CustomClaims) {
		return domain.AdminIdentity{}, ErrAuthInvalidCredentials
	}
	return domain.AdminIdentity{
		ID:    record.UID,
		Email: record.Email,
		Name:  record.DisplayName,
		Role:  "admin",
	}, nil
}

func hasAdminClaim(claims map[string]any) bool {
	if claims == nil {
		return false
	}
	if role, ok := claims["role"].(string); ok && role == "admin" {
		return true
	}
	if admin, ok := claims["admin"].(bool); ok && admin {
		return true
	}
	return false
}

// DevAuthenticator admits a single fixed credential pair. It exists for local
// development without a Firebase project and is refused outside the local
// environment at construction time.
type DevAuthenticator struct {
	email    string
	password string
}

// NewDevAuthenticator builds the development credential backend, or an error
// when the environment does not allow it.
func NewDevAuthenticator(cfg config.SecurityConfig) (*DevAuthenticator, error) {
	if !cfg.IsLocal() || !cfg.EnableDevAdminLogin {
		return nil, errors.New("dev authenticator: only available in the local environment")
	}
	email := strings.ToLower(strings.TrimSpace(cfg.DevAdminEmail))
	if email == "" || cfg.DevAdminPassword == "" {
		return nil, errors.New("dev authenticator: email and password are required")
	}
	return &DevAuthenticator{email: email, password: cfg.DevAdminPassword}, nil
}

// Authenticate compares against the fixed pair.
func (a *DevAuthenticator) Authenticate(_ context.Context, email, password string) (domain.AdminIdentity, error) {
	if strings.ToLower(strings.TrimSpace(email)) != a.email || password != a.password {
		return domain.AdminIdentity{}, ErrAuthInvalidCredentials
	}
	return domain.AdminIdentity{
		ID:    "dev-admin",
		Email: a.email,
		Name:  "Store Admin",
		Role:  "admin",
	}, nil
}

// AdminAuthServiceDeps wires credential backends and session storage.
type AdminAuthServiceDeps struct {
	Authenticators []PasswordAuthenticator
	Sessions       repositories.AdminSessionRepository
	SessionTTL     time.Duration
	TokenGenerator func() string
	Logger         func(context.Context, string, map[string]any)
}

type adminAuthService struct {
	authenticators []PasswordAuthenticator
	sessions       repositories.AdminSessionRepository
	ttl            time.Duration
	newToken       func() string
	logger         func(context.Context, string, map[string]any)
}

// NewAdminAuthService constructs an AdminAuthService enforcing dependency
// validation. Authenticators are tried in order; the first acceptance wins.
func NewAdminAuthService(deps AdminAuthServiceDeps) (AdminAuthService, error) {
	if len(deps.Authenticators) == 0 {
		return nil, errors.New("admin auth service: at least one authenticator is required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("admin auth service: session repository is required")
	}
	ttl := deps.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	newToken := deps.TokenGenerator
	if newToken == nil {
		newToken = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &adminAuthService{
		authenticators: deps.Authenticators,
		sessions:       deps.Sessions,
		ttl:            ttl,
		newToken:       newToken,
		logger:         logger,
	}, nil
}

// SignIn checks the credentials against each backend in order and mints an
// opaque session token on success.
func (s *adminAuthService) SignIn(ctx context.Context, email, password string) (AdminSession, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return AdminSession{}, ErrAuthInvalidCredentials
	}

	var identity domain.AdminIdentity
	var lastErr error
	authenticated := false
	for _, authenticator := range s.authenticators {
		got, err := authenticator.Authenticate(ctx, email, password)
		if err == nil {
			identity = got
			authenticated = true
			break
		}
		lastErr = err
		if !errors.Is(err, ErrAuthInvalidCredentials) {
			// A backend outage must not let a later, weaker backend decide.
			return AdminSession{}, err
		}
	}
	if !authenticated {
		s.logger(ctx, "admin.sign_in_rejected", map[string]any{"email": email})
		if lastErr != nil {
			return AdminSession{}, lastErr
		}
		return AdminSession{}, ErrAuthInvalidCredentials
	}

	token := s.newToken()
	if err := s.sessions.Put(ctx, token, identity, s.ttl); err != nil {
		return AdminSession{}, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}
	s.logger(ctx, "admin.signed_in", map[string]any{"email": identity.Email, "admin_id": identity.ID})
	return AdminSession{Token: token, Identity: identity}, nil
}

// SignOut discards the session. Unknown tokens are a no-op.
func (s *adminAuthService) SignOut(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	if err := s.sessions.Remove(ctx, token); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}
	return nil
}

// Verify resolves the session token to the identity it was minted for.
func (s *adminAuthService) Verify(ctx context.Context, token string) (domain.AdminIdentity, error) {
	if strings.TrimSpace(token) == "" {
		return domain.AdminIdentity{}, ErrAuthSessionExpired
	}
	identity, ok, err := s.sessions.Lookup(ctx, token)
	if err != nil {
		return domain.AdminIdentity{}, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}
	if !ok {
		return domain.AdminIdentity{}, ErrAuthSessionExpired
	}
	return identity, nil
}
