// Package registry implements the registry's domain operations: crate
// cataloguing, version publishing and yanking, and permission
// resolution. Every mutating operation is gated through the capability
// checks in authz.go before any state is touched.
package registry

import (
	"bytes"
	"context"
	"fmt"

	"crate-registry/orm"
)

// ArtifactStore is the boundary to the external artifact storage. The
// metadata core only ever handles the opaque object key; the bytes
// live behind this interface.
type ArtifactStore interface {
	Put(ctx context.Context, content []byte) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

type Service struct {
	db    orm.DB
	store ArtifactStore
}

// NewService creates the domain service around a metadata store and an
// artifact store implementation.
func NewService(db orm.DB, store ArtifactStore) *Service {
	return &Service{
		db:    db,
		store: store,
	}
}

// CheckStore round-trips a small object through the artifact store and
// removes it again. Used as a startup self-check so a misconfigured
// store fails loudly before the service is reported ready.
func (s *Service) CheckStore(ctx context.Context) error {
	if s.store == nil {
		return ErrStoreUnavailable
	}

	payload := []byte("crate-registry store check")

	key, err := s.store.Put(ctx, payload)
	if err != nil {
		return fmt.Errorf("store check: put: %w", err)
	}

	content, err := s.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("store check: get: %w", err)
	}

	if !bytes.Equal(content, payload) {
		return fmt.Errorf("store check: object %s came back corrupted", key)
	}

	if err := s.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("store check: delete: %w", err)
	}

	return nil
}
