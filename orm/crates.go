package orm

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// CrateMetadata carries the descriptive fields of a crate. A nil field
// means "leave unchanged" on update and "unset" on create.
type CrateMetadata struct {
	Readme        *string
	Description   *string
	Repository    *string
	Homepage      *string
	Documentation *string
}

func (db DB) CreateCrate(
	ctx context.Context,
	organisationID uint,
	name string,
	meta CrateMetadata,
) (*Crate, error) {
	if name == "" {
		return nil, &BadInputError{Reason: "crate name must not be empty"}
	}

	if organisationID == 0 {
		return nil, &BadInputError{Reason: "organisation id must be provided"}
	}

	crate := Crate{
		Name:           name,
		OrganisationID: organisationID,
		Readme:         meta.Readme,
		Description:    meta.Description,
		Repository:     meta.Repository,
		Homepage:       meta.Homepage,
		Documentation:  meta.Documentation,
	}

	err := gorm.G[Crate](db.dbGorm).Create(ctx, &crate)
	if err != nil {
		return nil, wrapErrorWithDetails(
			err,
			"create crate",
			fmt.Sprintf("organisation_id=%d, name=%q", organisationID, name),
		)
	}

	return &crate, nil
}

func (db DB) GetCrateByName(
	ctx context.Context,
	organisationID uint,
	name string,
) (*Crate, error) {
	if name == "" {
		return nil, &BadInputError{Reason: "crate name must not be empty"}
	}

	crate, err := gorm.G[Crate](db.dbGorm).Where(&Crate{
		OrganisationID: organisationID,
		Name:           name,
	}).First(ctx)
	if err != nil {
		return nil, wrapErrorWithDetails(
			err,
			"get crate by name",
			fmt.Sprintf("organisation_id=%d, name=%q", organisationID, name),
		)
	}

	return &crate, nil
}

func (db DB) ListCrates(
	ctx context.Context,
	organisationID uint,
) ([]Crate, error) {
	crates, err := gorm.G[Crate](db.dbGorm).
		Where("organisation_id = ?", organisationID).
		Order("name").
		Find(ctx)
	if err != nil {
		return nil, wrapErrorWithDetails(
			err,
			"list crates",
			fmt.Sprintf("organisation_id=%d", organisationID),
		)
	}

	return crates, nil
}

// UpdateCrateMetadata applies a partial update: only non-nil fields of
// meta are written.
func (db DB) UpdateCrateMetadata(
	ctx context.Context,
	crateID uint,
	meta CrateMetadata,
) error {
	updates := map[string]any{}
	if meta.Readme != nil {
		updates["readme"] = *meta.Readme
	}
	if meta.Description != nil {
		updates["description"] = *meta.Description
	}
	if meta.Repository != nil {
		updates["repository"] = *meta.Repository
	}
	if meta.Homepage != nil {
		updates["homepage"] = *meta.Homepage
	}
	if meta.Documentation != nil {
		updates["documentation"] = *meta.Documentation
	}

	details := fmt.Sprintf("crate_id=%d", crateID)

	if len(updates) == 0 {
		return nil
	}

	result := db.dbGorm.WithContext(ctx).
		Model(&Crate{}).
		Where("id = ?", crateID).
		Updates(updates)
	if result.Error != nil {
		return wrapErrorWithDetails(result.Error, "update crate metadata", details)
	}

	if result.RowsAffected == 0 {
		return &NotFoundError{Search: "update crate metadata (" + details + ")"}
	}

	return nil
}
