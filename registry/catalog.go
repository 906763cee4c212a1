package registry

import (
	"context"

	"github.com/rs/zerolog/log"

	"crate-registry/orm"
	"crate-registry/perm"
)

// CreateCrate registers a new crate in the organisation. Names are
// unique per organisation only; the store's constraint decides
// conflicts. Creation is not capability-gated beyond the organisation
// existing.
func (s *Service) CreateCrate(
	ctx context.Context,
	org *orm.Organisation,
	name string,
	meta orm.CrateMetadata,
) (*orm.Crate, error) {
	crate, err := s.db.CreateCrate(ctx, org.ID, name, meta)
	if err != nil {
		//nolint:wrapcheck // Error already wrapped
		return nil, err
	}

	log.Info().
		Str("organisation", org.Name).
		Str("crate", name).
		Msg("crate created")

	return crate, nil
}

// FindCrateByName resolves a crate inside its organisation. Callers
// must always carry the organisation context: the same name may exist
// in several organisations.
func (s *Service) FindCrateByName(
	ctx context.Context,
	org *orm.Organisation,
	name string,
) (*orm.Crate, error) {
	//nolint:wrapcheck // Error already wrapped
	return s.db.GetCrateByName(ctx, org.ID, name)
}

// ListCrates returns the organisation's crates ordered by name.
func (s *Service) ListCrates(
	ctx context.Context,
	org *orm.Organisation,
) ([]orm.Crate, error) {
	//nolint:wrapcheck // Error already wrapped
	return s.db.ListCrates(ctx, org.ID)
}

// UpdateCrateMetadata applies a partial metadata update; nil fields
// are left unchanged. Requires manage-crate-metadata.
func (s *Service) UpdateCrateMetadata(
	ctx context.Context,
	actor *orm.User,
	crate *orm.Crate,
	meta orm.CrateMetadata,
) error {
	err := s.RequireCrate(ctx, actor, crate, perm.ManageCrateMetadata)
	if err != nil {
		return err
	}

	//nolint:wrapcheck // Error already wrapped
	return s.db.UpdateCrateMetadata(ctx, crate.ID, meta)
}
