package orm

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// CreateCrateVersion records a published version. The (crate_id,
// version) unique index is the single source of truth for version
// conflicts: two concurrent publishes of the same version string
// resolve to exactly one success. The write is a single transaction.
func (db DB) CreateCrateVersion(
	ctx context.Context,
	version *CrateVersion,
) error {
	if version == nil {
		return &BadInputError{Reason: "crate version must not be nil"}
	}

	if version.CrateID == 0 || version.Version == "" {
		return &BadInputError{
			Reason: fmt.Sprintf(
				"crate id and version must be provided: crate_id=%d, version=%q",
				version.CrateID,
				version.Version,
			),
		}
	}

	if version.SizeBytes <= 0 {
		return &BadInputError{
			Reason: fmt.Sprintf(
				"version size must be positive, got %d", version.SizeBytes,
			),
		}
	}

	err := gorm.G[CrateVersion](db.dbGorm).Create(ctx, version)
	if err != nil {
		return wrapErrorWithDetails(
			err,
			"create crate version",
			fmt.Sprintf(
				"crate_id=%d, version=%q",
				version.CrateID,
				version.Version,
			),
		)
	}

	return nil
}

func (db DB) GetCrateVersion(
	ctx context.Context,
	crateID uint,
	version string,
) (*CrateVersion, error) {
	if version == "" {
		return nil, &BadInputError{Reason: "version must not be empty"}
	}

	record, err := gorm.G[CrateVersion](db.dbGorm).Where(&CrateVersion{
		CrateID: crateID,
		Version: version,
	}).First(ctx)
	if err != nil {
		return nil, wrapErrorWithDetails(
			err,
			"get crate version",
			fmt.Sprintf("crate_id=%d, version=%q", crateID, version),
		)
	}

	return &record, nil
}

// SetCrateVersionYanked flips the yank flag. The transition is
// reversible in both directions and last-writer-wins under
// concurrency; no other field of a published version can be written.
func (db DB) SetCrateVersionYanked(
	ctx context.Context,
	crateID uint,
	version string,
	yanked bool,
) error {
	if version == "" {
		return &BadInputError{Reason: "version must not be empty"}
	}

	details := fmt.Sprintf(
		"crate_id=%d, version=%q, yanked=%t", crateID, version, yanked,
	)

	result := db.dbGorm.WithContext(ctx).
		Model(&CrateVersion{}).
		Where("crate_id = ? AND version = ?", crateID, version).
		Update("yanked", yanked)
	if result.Error != nil {
		return wrapErrorWithDetails(result.Error, "set version yanked", details)
	}

	if result.RowsAffected == 0 {
		return &NotFoundError{Search: "set version yanked (" + details + ")"}
	}

	return nil
}

// ListCrateVersions returns versions in publication order (created_at
// ascending, id as tiebreaker). The default consumer view excludes
// yanked versions.
func (db DB) ListCrateVersions(
	ctx context.Context,
	crateID uint,
	includeYanked bool,
) ([]CrateVersion, error) {
	query := gorm.G[CrateVersion](db.dbGorm).
		Where("crate_id = ?", crateID)
	if !includeYanked {
		query = query.Where("yanked = ?", false)
	}

	versions, err := query.Order("created_at, id").Find(ctx)
	if err != nil {
		return nil, wrapErrorWithDetails(
			err,
			"list crate versions",
			fmt.Sprintf("crate_id=%d, include_yanked=%t", crateID, includeYanked),
		)
	}

	return versions, nil
}

// LatestCrateVersion returns the most recently published version that
// has not been yanked.
func (db DB) LatestCrateVersion(
	ctx context.Context,
	crateID uint,
) (*CrateVersion, error) {
	version, err := gorm.G[CrateVersion](db.dbGorm).
		Where("crate_id = ? AND yanked = ?", crateID, false).
		Order("created_at DESC, id DESC").
		First(ctx)
	if err != nil {
		return nil, wrapErrorWithDetails(
			err,
			"get latest crate version",
			fmt.Sprintf("crate_id=%d", crateID),
		)
	}

	return &version, nil
}
