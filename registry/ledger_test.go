package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crate-registry/orm"
	"crate-registry/perm"
	"crate-registry/registry/memoryStore"
)

func publishReq(version string) PublishRequest {
	return PublishRequest{
		Version:          version,
		FilesystemObject: "cool-object",
		SizeBytes:        1024,
		Checksum:         "a665a45920422f9d417e4867efdc4fb8a04a1f3fff1fa07e998e86f7f7a27ae3",
		Dependencies:     []byte(`[]`),
		Features:         []byte(`{}`),
	}
}

func TestPublishRequiresCapability(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.grantOrg(t, perm.Read)

	_, err := f.service.Publish(ctx, f.user, f.crate, publishReq("1.0.0"))
	require.Error(t, err)
	assert.True(t, IsPermissionDenied(err))

	// No version row was written by the denied attempt.
	versions, err := f.service.ListVersions(ctx, f.crate, true)
	require.NoError(t, err)
	assert.Empty(t, versions)

	f.grantOrg(t, perm.Read|perm.PublishVersion)

	published, err := f.service.Publish(ctx, f.user, f.crate, publishReq("1.0.0"))
	require.NoError(t, err)
	assert.False(t, published.Yanked)
	assert.Equal(t, f.user.ID, published.UserID)
}

func TestPublishVersionConflict(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.grantOrg(t, perm.PublishVersion|perm.YankVersion)

	first, err := f.service.Publish(ctx, f.user, f.crate, publishReq("1.0.0"))
	require.NoError(t, err)

	req := publishReq("1.0.0")
	req.Checksum = "different"

	_, err = f.service.Publish(ctx, f.user, f.crate, req)
	var conflict *orm.ConflictError
	require.ErrorAs(t, err, &conflict)

	// The first-published record is unchanged by the failed attempt.
	record, err := f.db.GetCrateVersion(ctx, f.crate.ID, "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, first.Checksum, record.Checksum)
	assert.Equal(t, first.ID, record.ID)

	// Yanking does not free the version string for reuse.
	require.NoError(t, f.service.Yank(ctx, f.user, f.crate, "1.0.0"))

	_, err = f.service.Publish(ctx, f.user, f.crate, publishReq("1.0.0"))
	require.ErrorAs(t, err, &conflict)
}

func TestPublishValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.grantOrg(t, perm.PublishVersion)

	var badInput *orm.BadInputError

	req := publishReq("1.0.0")
	req.SizeBytes = 0
	_, err := f.service.Publish(ctx, f.user, f.crate, req)
	require.ErrorAs(t, err, &badInput)

	req = publishReq("1.0.0")
	req.SizeBytes = -5
	_, err = f.service.Publish(ctx, f.user, f.crate, req)
	require.ErrorAs(t, err, &badInput)

	_, err = f.service.Publish(ctx, f.user, f.crate, publishReq("not-semver"))
	require.ErrorAs(t, err, &badInput)
}

func TestConcurrentPublishSameVersion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.grantOrg(t, perm.PublishVersion)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)

	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := f.service.Publish(ctx, f.user, f.crate, publishReq("2.0.0"))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			default:
				var conflict *orm.ConflictError
				if assert.ErrorAs(t, err, &conflict) {
					conflicts++
				}
			}
		}()
	}
	wg.Wait()

	// Exactly one success, one conflict, one record.
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicts)

	versions, err := f.service.ListVersions(ctx, f.crate, true)
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestYankUnyankListing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.grantOrg(t, perm.PublishVersion|perm.YankVersion)

	for _, v := range []string{"1.0.0", "1.1.0", "2.0.0"} {
		_, err := f.service.Publish(ctx, f.user, f.crate, publishReq(v))
		require.NoError(t, err)
	}

	require.NoError(t, f.service.Yank(ctx, f.user, f.crate, "1.1.0"))

	visible, err := f.service.ListVersions(ctx, f.crate, false)
	require.NoError(t, err)
	require.Len(t, visible, 2)
	assert.Equal(t, "1.0.0", visible[0].Version)
	assert.Equal(t, "2.0.0", visible[1].Version)

	all, err := f.service.ListVersions(ctx, f.crate, true)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[1].Yanked)

	// Unyank restores the default view.
	require.NoError(t, f.service.Unyank(ctx, f.user, f.crate, "1.1.0"))

	visible, err = f.service.ListVersions(ctx, f.crate, false)
	require.NoError(t, err)
	assert.Len(t, visible, 3)
}

func TestYankGatingAndMissingVersion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.grantOrg(t, perm.PublishVersion)

	_, err := f.service.Publish(ctx, f.user, f.crate, publishReq("1.0.0"))
	require.NoError(t, err)

	err = f.service.Yank(ctx, f.user, f.crate, "1.0.0")
	require.Error(t, err)
	assert.True(t, IsPermissionDenied(err))

	f.grantOrg(t, perm.PublishVersion|perm.YankVersion)

	err = f.service.Yank(ctx, f.user, f.crate, "9.9.9")
	var notFound *orm.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestLatestVersionSkipsYanked(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.grantOrg(t, perm.PublishVersion|perm.YankVersion)

	for _, v := range []string{"1.0.0", "2.0.0"} {
		_, err := f.service.Publish(ctx, f.user, f.crate, publishReq(v))
		require.NoError(t, err)
	}

	require.NoError(t, f.service.Yank(ctx, f.user, f.crate, "2.0.0"))

	latest, err := f.service.LatestVersion(ctx, f.crate)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", latest.Version)
}

func TestPublishContentRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.grantOrg(t, perm.Read|perm.PublishVersion)

	store := memoryStore.New()
	service := NewService(f.db, store)

	content := []byte("crate tarball bytes")

	published, err := service.PublishContent(
		ctx, f.user, f.crate, "1.0.0", content, []byte(`[]`), []byte(`{}`), nil,
	)
	require.NoError(t, err)

	wantSum := sha256.Sum256(content)
	assert.Equal(t, hex.EncodeToString(wantSum[:]), published.Checksum)
	assert.Equal(t, int64(len(content)), published.SizeBytes)
	assert.Equal(t, 1, store.Count())

	fetched, err := service.DownloadVersion(ctx, f.user, f.crate, "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, content, fetched)
}

func TestPublishContentDeniedWritesNothing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)

	store := memoryStore.New()
	service := NewService(f.db, store)

	_, err := service.PublishContent(
		ctx, f.user, f.crate, "1.0.0", []byte("bytes"), nil, nil, nil,
	)
	require.Error(t, err)
	assert.True(t, IsPermissionDenied(err))
	assert.Zero(t, store.Count())
}

func TestDependencyBlobsStoredVerbatim(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.grantOrg(t, perm.PublishVersion)

	deps := []byte(`[{"name":"serde","req":"^1.0"}]`)
	features := []byte(`{"default":["std"]}`)

	req := publishReq("1.0.0")
	req.Dependencies = deps
	req.Features = features

	_, err := f.service.Publish(ctx, f.user, f.crate, req)
	require.NoError(t, err)

	record, err := f.db.GetCrateVersion(ctx, f.crate.ID, "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, deps, record.Dependencies)
	assert.Equal(t, features, record.Features)
}
