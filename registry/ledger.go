package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog/log"

	"crate-registry/orm"
	"crate-registry/perm"
)

// PublishRequest carries the immutable payload of a new version. The
// dependency and feature blobs are owned by the publishing client and
// stored verbatim.
type PublishRequest struct {
	Version          string
	FilesystemObject string
	SizeBytes        int64
	Checksum         string
	Dependencies     []byte
	Features         []byte
	Links            *string
}

// Publish records a new version of the crate. Requires
// publish-version. Version strings are never reused, even after a
// yank: a client that cached the old artifact under that string must
// never observe different bytes for it.
func (s *Service) Publish(
	ctx context.Context,
	actor *orm.User,
	crate *orm.Crate,
	req PublishRequest,
) (*orm.CrateVersion, error) {
	if err := s.RequireCrate(ctx, actor, crate, perm.PublishVersion); err != nil {
		return nil, err
	}

	if _, err := semver.StrictNewVersion(req.Version); err != nil {
		return nil, &orm.BadInputError{
			Reason: fmt.Sprintf(
				"version %q is not valid semver: %v", req.Version, err,
			),
		}
	}

	version := orm.CrateVersion{
		CrateID:          crate.ID,
		Version:          req.Version,
		FilesystemObject: req.FilesystemObject,
		SizeBytes:        req.SizeBytes,
		Checksum:         req.Checksum,
		Dependencies:     req.Dependencies,
		Features:         req.Features,
		Links:            req.Links,
		UserID:           actor.ID,
	}

	if err := s.db.CreateCrateVersion(ctx, &version); err != nil {
		//nolint:wrapcheck // Error already wrapped
		return nil, err
	}

	log.Info().
		Str("crate", crate.Name).
		Str("version", req.Version).
		Str("publisher", actor.Username).
		Msg("version published")

	return &version, nil
}

// PublishContent is the convenience path used by the publish workflow:
// it writes the artifact bytes to the store, derives checksum and size
// from the content, and records the version under the returned key.
func (s *Service) PublishContent(
	ctx context.Context,
	actor *orm.User,
	crate *orm.Crate,
	version string,
	content []byte,
	dependencies, features []byte,
	links *string,
) (*orm.CrateVersion, error) {
	if s.store == nil {
		return nil, ErrStoreUnavailable
	}

	// Gate before touching the artifact store so a denied publish
	// leaves no orphaned object behind.
	if err := s.RequireCrate(ctx, actor, crate, perm.PublishVersion); err != nil {
		return nil, err
	}

	key, err := s.store.Put(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("store artifact: %w", err)
	}

	checksum := sha256.Sum256(content)

	return s.Publish(ctx, actor, crate, PublishRequest{
		Version:          version,
		FilesystemObject: key,
		SizeBytes:        int64(len(content)),
		Checksum:         hex.EncodeToString(checksum[:]),
		Dependencies:     dependencies,
		Features:         features,
		Links:            links,
	})
}

// Yank hides a version from the default resolution view. Requires
// yank-version. The record itself stays: yanking is a soft delete.
func (s *Service) Yank(
	ctx context.Context,
	actor *orm.User,
	crate *orm.Crate,
	version string,
) error {
	return s.setYanked(ctx, actor, crate, version, true)
}

// Unyank restores a yanked version to the default view.
func (s *Service) Unyank(
	ctx context.Context,
	actor *orm.User,
	crate *orm.Crate,
	version string,
) error {
	return s.setYanked(ctx, actor, crate, version, false)
}

func (s *Service) setYanked(
	ctx context.Context,
	actor *orm.User,
	crate *orm.Crate,
	version string,
	yanked bool,
) error {
	if err := s.RequireCrate(ctx, actor, crate, perm.YankVersion); err != nil {
		return err
	}

	err := s.db.SetCrateVersionYanked(ctx, crate.ID, version, yanked)
	if err != nil {
		//nolint:wrapcheck // Error already wrapped
		return err
	}

	log.Info().
		Str("crate", crate.Name).
		Str("version", version).
		Bool("yanked", yanked).
		Str("actor", actor.Username).
		Msg("version yank state changed")

	return nil
}

// ListVersions returns the crate's versions in publication order.
// Dependency resolution consumers use includeYanked=false.
func (s *Service) ListVersions(
	ctx context.Context,
	crate *orm.Crate,
	includeYanked bool,
) ([]orm.CrateVersion, error) {
	//nolint:wrapcheck // Error already wrapped
	return s.db.ListCrateVersions(ctx, crate.ID, includeYanked)
}

// LatestVersion returns the newest non-yanked version of the crate.
func (s *Service) LatestVersion(
	ctx context.Context,
	crate *orm.Crate,
) (*orm.CrateVersion, error) {
	//nolint:wrapcheck // Error already wrapped
	return s.db.LatestCrateVersion(ctx, crate.ID)
}

// DownloadVersion fetches a version's artifact bytes from the store.
// Requires read. Yanked versions stay downloadable by exact version
// string; yanking only removes them from default listings.
func (s *Service) DownloadVersion(
	ctx context.Context,
	actor *orm.User,
	crate *orm.Crate,
	version string,
) ([]byte, error) {
	if s.store == nil {
		return nil, ErrStoreUnavailable
	}

	if err := s.RequireCrate(ctx, actor, crate, perm.Read); err != nil {
		return nil, err
	}

	record, err := s.db.GetCrateVersion(ctx, crate.ID, version)
	if err != nil {
		//nolint:wrapcheck // Error already wrapped
		return nil, err
	}

	content, err := s.store.Get(ctx, record.FilesystemObject)
	if err != nil {
		return nil, fmt.Errorf("fetch artifact: %w", err)
	}

	return content, nil
}
