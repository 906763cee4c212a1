package registry

import (
	"context"

	"github.com/rs/zerolog/log"

	"crate-registry/orm"
	"crate-registry/perm"
)

// EffectiveOrgPermissions resolves the user's organisation-scoped mask.
// Zero when no grant exists.
func (s *Service) EffectiveOrgPermissions(
	ctx context.Context,
	user *orm.User,
	org *orm.Organisation,
) (perm.Permission, error) {
	//nolint:wrapcheck // Error already wrapped
	return s.db.GetOrganisationPermissions(ctx, user.ID, org.ID)
}

// EffectiveCratePermissions resolves the user's rights on a crate: the
// organisation baseline ORed with the crate-specific grant. OR
// composition means a crate grant can only add to the baseline, never
// subtract from it.
func (s *Service) EffectiveCratePermissions(
	ctx context.Context,
	user *orm.User,
	crate *orm.Crate,
) (perm.Permission, error) {
	orgMask, err := s.db.GetOrganisationPermissions(
		ctx, user.ID, crate.OrganisationID,
	)
	if err != nil {
		//nolint:wrapcheck // Error already wrapped
		return perm.None, err
	}

	crateMask, err := s.db.GetCratePermissions(ctx, user.ID, crate.ID)
	if err != nil {
		//nolint:wrapcheck // Error already wrapped
		return perm.None, err
	}

	return orgMask | crateMask, nil
}

// RequireCrate is the single gate for mutating catalog and ledger
// operations: it fails unless the capability bit is set in the user's
// effective crate mask.
func (s *Service) RequireCrate(
	ctx context.Context,
	user *orm.User,
	crate *orm.Crate,
	capability perm.Permission,
) error {
	mask, err := s.EffectiveCratePermissions(ctx, user, crate)
	if err != nil {
		return err
	}

	if !mask.Has(capability) {
		log.Debug().
			Str("user", user.Username).
			Str("crate", crate.Name).
			Str("required", capability.String()).
			Msg("capability check failed")

		return &PermissionError{Capability: capability}
	}

	return nil
}

func (s *Service) RequireOrg(
	ctx context.Context,
	user *orm.User,
	org *orm.Organisation,
	capability perm.Permission,
) error {
	mask, err := s.EffectiveOrgPermissions(ctx, user, org)
	if err != nil {
		return err
	}

	if !mask.Has(capability) {
		log.Debug().
			Str("user", user.Username).
			Str("organisation", org.Name).
			Str("required", capability.String()).
			Msg("capability check failed")

		return &PermissionError{Capability: capability}
	}

	return nil
}

// GrantOrgPermissions upserts the subject's organisation-scoped mask.
// The actor must hold manage-permissions on the organisation; the
// engine itself does not prevent escalation beyond that check.
// Re-applying the same mask is a no-op.
func (s *Service) GrantOrgPermissions(
	ctx context.Context,
	actor *orm.User,
	subject *orm.User,
	org *orm.Organisation,
	mask perm.Permission,
) error {
	if err := s.RequireOrg(ctx, actor, org, perm.ManagePermissions); err != nil {
		return err
	}

	//nolint:wrapcheck // Error already wrapped
	return s.db.UpsertOrganisationPermissions(ctx, subject.ID, org.ID, mask)
}

// GrantCratePermissions upserts the subject's crate-scoped mask.
func (s *Service) GrantCratePermissions(
	ctx context.Context,
	actor *orm.User,
	subject *orm.User,
	crate *orm.Crate,
	mask perm.Permission,
) error {
	err := s.RequireCrate(ctx, actor, crate, perm.ManagePermissions)
	if err != nil {
		return err
	}

	//nolint:wrapcheck // Error already wrapped
	return s.db.UpsertCratePermissions(ctx, subject.ID, crate.ID, mask)
}

// RevokeCratePermissions removes the subject's crate-scoped grant,
// dropping them back to the organisation baseline.
func (s *Service) RevokeCratePermissions(
	ctx context.Context,
	actor *orm.User,
	subject *orm.User,
	crate *orm.Crate,
) error {
	err := s.RequireCrate(ctx, actor, crate, perm.ManagePermissions)
	if err != nil {
		return err
	}

	//nolint:wrapcheck // Error already wrapped
	return s.db.DeleteCratePermission(ctx, subject.ID, crate.ID)
}

// CrateMembers lists users holding a crate-scoped grant, for the
// member-management surface.
func (s *Service) CrateMembers(
	ctx context.Context,
	actor *orm.User,
	crate *orm.Crate,
) ([]orm.CrateMember, error) {
	if err := s.RequireCrate(ctx, actor, crate, perm.Read); err != nil {
		return nil, err
	}

	//nolint:wrapcheck // Error already wrapped
	return s.db.ListCrateMembers(ctx, crate.ID)
}
