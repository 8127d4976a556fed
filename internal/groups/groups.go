// Package groups administers destination tenant groups.
package groups

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/your-org/fdsync/internal/models"
	"github.com/your-org/fdsync/internal/reconcile"
	"github.com/your-org/fdsync/internal/settings"
)

//go:embed defaults/*.json
var defaults embed.FS

// ErrExists is returned when adding a group whose name is taken.
var ErrExists = errors.New("tenant group already exists")

// Type selects the serving system a group is created for.
type Type string

const (
	TypeFRS  Type = "frs"
	TypeLPRS Type = "lprs"
)

func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeFRS, TypeLPRS:
		return t, nil
	}
	return "", fmt.Errorf("unknown group type %q (want frs or lprs)", s)
}

// DefaultConfig returns the default per-stream document a new group of type t
// is seeded with.
func DefaultConfig(t Type) (settings.Document, error) {
	data, err := defaults.ReadFile("defaults/" + string(t) + ".json")
	if err != nil {
		return nil, fmt.Errorf("read %s defaults: %w", t, err)
	}
	var doc settings.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s defaults: %w", t, err)
	}
	return doc, nil
}

// Store is the destination side of group administration.
type Store interface {
	ListTenantGroups(ctx context.Context) ([]models.TenantGroup, error)
	// CreateTenantGroup inserts the group and seeds its default stream
	// document in one transaction.
	CreateTenantGroup(ctx context.Context, name string, token uuid.UUID, seed settings.Document) (models.TenantGroup, error)
	// DeleteTenantGroup removes the group; its data goes by cascade.
	DeleteTenantGroup(ctx context.Context, id int64) (bool, error)
}

type Service struct {
	store    Store
	log      *slog.Logger
	newToken func() uuid.UUID
}

func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, log: logger, newToken: uuid.New}
}

// List returns all groups ordered by id.
func (s *Service) List(ctx context.Context) ([]models.TenantGroup, error) {
	gs, err := s.store.ListTenantGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenant groups: %w", err)
	}
	return gs, nil
}

// Add creates a group named name with a fresh auth token.
func (s *Service) Add(ctx context.Context, name string, t Type) (models.TenantGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.TenantGroup{}, errors.New("group name is required")
	}
	seed, err := DefaultConfig(t)
	if err != nil {
		return models.TenantGroup{}, err
	}

	existing, err := s.List(ctx)
	if err != nil {
		return models.TenantGroup{}, err
	}
	for _, g := range existing {
		if g.Name == name {
			return models.TenantGroup{}, fmt.Errorf("%w: %q", ErrExists, name)
		}
	}

	g, err := s.store.CreateTenantGroup(ctx, name, s.newToken(), seed)
	if err != nil {
		return models.TenantGroup{}, fmt.Errorf("create tenant group: %w", err)
	}
	s.log.Info("tenant group created", "id", g.ID, "name", g.Name, "type", t)
	return g, nil
}

// Remove deletes the group and everything scoped to it.
func (s *Service) Remove(ctx context.Context, id int64) error {
	ok, err := s.store.DeleteTenantGroup(ctx, id)
	if err != nil {
		return fmt.Errorf("delete tenant group: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: id %d", reconcile.ErrTenantGroupNotFound, id)
	}
	s.log.Info("tenant group deleted", "id", id)
	return nil
}
