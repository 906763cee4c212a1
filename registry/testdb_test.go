package registry

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"

	"crate-registry/orm"
	"crate-registry/perm"
)

// newTestDB opens an isolated in-memory database per test. A single
// connection keeps sqlite's writer semantics compatible with the
// concurrency expected from postgres row locking.
func newTestDB(t *testing.T) orm.DB {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"),
	)

	db, err := orm.Open(sqlite.Open(dsn))
	require.NoError(t, err)

	sqlDB, err := db.Gorm().DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	return db
}

type fixture struct {
	db      orm.DB
	service *Service

	user  *orm.User
	org   *orm.Organisation
	crate *orm.Crate
}

// newFixture seeds a user, an organisation and one crate owned by it.
// The user starts with no permissions at all.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db := newTestDB(t)

	user, err := db.CreateUser(ctx, "admin", nil)
	require.NoError(t, err)

	org, err := db.CreateOrganisation(ctx, "core")
	require.NoError(t, err)

	crate, err := db.CreateCrate(ctx, org.ID, "cool-test-crate", orm.CrateMetadata{})
	require.NoError(t, err)

	return &fixture{
		db:      db,
		service: NewService(db, nil),
		user:    user,
		org:     org,
		crate:   crate,
	}
}

func (f *fixture) grantOrg(t *testing.T, mask perm.Permission) {
	t.Helper()

	err := f.db.UpsertOrganisationPermissions(
		context.Background(), f.user.ID, f.org.ID, mask,
	)
	require.NoError(t, err)
}

func (f *fixture) grantCrate(t *testing.T, mask perm.Permission) {
	t.Helper()

	err := f.db.UpsertCratePermissions(
		context.Background(), f.user.ID, f.crate.ID, mask,
	)
	require.NoError(t, err)
}
