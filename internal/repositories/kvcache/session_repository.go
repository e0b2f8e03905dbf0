package kvcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/siacollections/storefront/internal/domain"
	"github.com/siacollections/storefront/internal/repositories"
)

const adminSessionKeyPrefix = "admin_session:"

// AdminSessionRepository keeps the logged-in-admin marker in the durable slot
// so a dashboard session survives server restarts until its TTL elapses.
type AdminSessionRepository struct {
	kv repositories.KeyValueStore
}

// NewAdminSessionRepository constructs an AdminSessionRepository.
func NewAdminSessionRepository(kv repositories.KeyValueStore) (*AdminSessionRepository, error) {
	if kv == nil {
		return nil, errors.New("admin session repository: key-value store is required")
	}
	return &AdminSessionRepository{kv: kv}, nil
}

type adminSessionRecord struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Put stores the identity under the opaque session token.
func (r *AdminSessionRepository) Put(ctx context.Context, token string, identity domain.AdminIdentity, ttl time.Duration) error {
	key := strings.TrimSpace(token)
	if key == "" {
		return errors.New("admin session repository: token is required")
	}

	payload, err := json.Marshal(adminSessionRecord{
		ID:    identity.ID,
		Email: identity.Email,
		Name:  identity.Name,
		Role:  identity.Role,
	})
	if err != nil {
		return fmt.Errorf("admin session repository: encode session: %w", err)
	}
	if err := r.kv.Set(ctx, adminSessionKeyPrefix+key, string(payload), ttl); err != nil {
		return repositories.NewUnavailable("admin session repository: put", err)
	}
	return nil
}

// Lookup resolves the token to an identity. A missing or undecodable marker is
// reported as not present, never as a fatal error.
func (r *AdminSessionRepository) Lookup(ctx context.Context, token string) (domain.AdminIdentity, bool, error) {
	key := strings.TrimSpace(token)
	if key == "" {
		return domain.AdminIdentity{}, false, nil
	}

	raw, ok, err := r.kv.Get(ctx, adminSessionKeyPrefix+key)
	if err != nil {
		return domain.AdminIdentity{}, false, repositories.NewUnavailable("admin session repository: lookup", err)
	}
	if !ok {
		return domain.AdminIdentity{}, false, nil
	}

	var record adminSessionRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return domain.AdminIdentity{}, false, nil
	}
	return domain.AdminIdentity{
		ID:    record.ID,
		Email: record.Email,
		Name:  record.Name,
		Role:  record.Role,
	}, true, nil
}

// Remove deletes the session marker. Removing an absent token is a no-op.
func (r *AdminSessionRepository) Remove(ctx context.Context, token string) error {
	key := strings.TrimSpace(token)
	if key == "" {
		return nil
	}
	if err := r.kv.Del(ctx, adminSessionKeyPrefix+key); err != nil {
		return repositories.NewUnavailable("admin session repository: remove", err)
	}
	return nil
}
