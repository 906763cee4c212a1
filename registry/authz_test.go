package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crate-registry/perm"
)

func TestEffectiveOrgPermissionsDefaultsToZero(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)

	mask, err := f.service.EffectiveOrgPermissions(ctx, f.user, f.org)
	require.NoError(t, err)
	assert.Equal(t, perm.None, mask)
}

func TestEffectiveCratePermissionsOrComposition(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.grantOrg(t, perm.Read|perm.YankVersion)
	f.grantCrate(t, perm.PublishVersion)

	orgMask, err := f.service.EffectiveOrgPermissions(ctx, f.user, f.org)
	require.NoError(t, err)

	crateMask, err := f.db.GetCratePermissions(ctx, f.user.ID, f.crate.ID)
	require.NoError(t, err)

	effective, err := f.service.EffectiveCratePermissions(ctx, f.user, f.crate)
	require.NoError(t, err)

	// The OR-composition law: effective == org | crate-specific.
	assert.Equal(t, orgMask|crateMask, effective)
	assert.True(t, effective.Has(perm.Read))
	assert.True(t, effective.Has(perm.PublishVersion))
	assert.True(t, effective.Has(perm.YankVersion))
}

func TestCrateGrantIsAdditiveOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.grantOrg(t, perm.Read|perm.PublishVersion)

	// A narrower crate-level mask cannot remove the org baseline.
	f.grantCrate(t, perm.None)

	effective, err := f.service.EffectiveCratePermissions(ctx, f.user, f.crate)
	require.NoError(t, err)
	assert.True(t, effective.Has(perm.Read|perm.PublishVersion))
}

func TestGrantRequiresManagePermissions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)

	subject, err := f.db.CreateUser(ctx, "colleague", nil)
	require.NoError(t, err)

	err = f.service.GrantOrgPermissions(ctx, f.user, subject, f.org, perm.Read)
	require.Error(t, err)
	assert.True(t, IsPermissionDenied(err))

	// The denied grant left no row behind.
	mask, err := f.db.GetOrganisationPermissions(ctx, subject.ID, f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, perm.None, mask)

	f.grantOrg(t, perm.ManagePermissions)

	err = f.service.GrantOrgPermissions(ctx, f.user, subject, f.org, perm.Read)
	require.NoError(t, err)

	mask, err = f.db.GetOrganisationPermissions(ctx, subject.ID, f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, perm.Read, mask)
}

func TestGrantUpsertIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)

	for range 3 {
		err := f.db.UpsertOrganisationPermissions(
			ctx, f.user.ID, f.org.ID, perm.Read|perm.PublishVersion,
		)
		require.NoError(t, err)
	}

	mask, err := f.db.GetOrganisationPermissions(ctx, f.user.ID, f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, perm.Read|perm.PublishVersion, mask)
}

func TestConcurrentGrantsResolveToSingleRow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)

	maskA := perm.Read
	maskB := perm.Read | perm.PublishVersion | perm.YankVersion

	var wg sync.WaitGroup
	for _, mask := range []perm.Permission{maskA, maskB} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.db.UpsertOrganisationPermissions(
				ctx, f.user.ID, f.org.ID, mask,
			)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Exactly one row survives, holding one of the two masks whole:
	// never a merge of both, never two rows.
	final, err := f.db.GetOrganisationPermissions(ctx, f.user.ID, f.org.ID)
	require.NoError(t, err)
	assert.Contains(t, []perm.Permission{maskA, maskB}, final)
}

func TestRevokeCratePermissionsDropsToBaseline(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.grantOrg(t, perm.Read|perm.ManagePermissions)

	subject, err := f.db.CreateUser(ctx, "colleague", nil)
	require.NoError(t, err)

	err = f.service.GrantCratePermissions(
		ctx, f.user, subject, f.crate, perm.PublishVersion,
	)
	require.NoError(t, err)

	effective, err := f.service.EffectiveCratePermissions(ctx, subject, f.crate)
	require.NoError(t, err)
	assert.True(t, effective.Has(perm.PublishVersion))

	err = f.service.RevokeCratePermissions(ctx, f.user, subject, f.crate)
	require.NoError(t, err)

	effective, err = f.service.EffectiveCratePermissions(ctx, subject, f.crate)
	require.NoError(t, err)
	assert.Equal(t, perm.None, effective)
}

func TestCrateMembers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.grantOrg(t, perm.Read|perm.ManagePermissions)

	subject, err := f.db.CreateUser(ctx, "colleague", nil)
	require.NoError(t, err)

	err = f.service.GrantCratePermissions(
		ctx, f.user, subject, f.crate, perm.Read,
	)
	require.NoError(t, err)

	members, err := f.service.CrateMembers(ctx, f.user, f.crate)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "colleague", members[0].User.Username)
	assert.Equal(t, perm.Read, members[0].Permissions)
}
