package orm

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"crate-registry/perm"
)

// Permission grants are single-statement upserts: the store's row-level
// conflict handling serializes concurrent grants for the same subject
// pair into one final row, never a merge and never two rows.

func (db DB) UpsertOrganisationPermissions(
	ctx context.Context,
	userID, organisationID uint,
	mask perm.Permission,
) error {
	if userID == 0 || organisationID == 0 {
		return &BadInputError{
			Reason: fmt.Sprintf(
				"user id and organisation id must be provided: user_id=%d, organisation_id=%d",
				userID,
				organisationID,
			),
		}
	}

	row := UserOrganisationPermission{
		UserID:         userID,
		OrganisationID: organisationID,
		Permissions:    mask,
	}

	err := gorm.G[UserOrganisationPermission](db.dbGorm, clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "organisation_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"permissions"}),
	}).Create(ctx, &row)
	if err != nil {
		return wrapErrorWithDetails(
			err,
			"upsert organisation permissions",
			fmt.Sprintf(
				"user_id=%d, organisation_id=%d, permissions=%s",
				userID,
				organisationID,
				mask,
			),
		)
	}

	return nil
}

func (db DB) UpsertCratePermissions(
	ctx context.Context,
	userID, crateID uint,
	mask perm.Permission,
) error {
	if userID == 0 || crateID == 0 {
		return &BadInputError{
			Reason: fmt.Sprintf(
				"user id and crate id must be provided: user_id=%d, crate_id=%d",
				userID,
				crateID,
			),
		}
	}

	row := UserCratePermission{
		UserID:      userID,
		CrateID:     crateID,
		Permissions: mask,
	}

	err := gorm.G[UserCratePermission](db.dbGorm, clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "crate_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"permissions"}),
	}).Create(ctx, &row)
	if err != nil {
		return wrapErrorWithDetails(
			err,
			"upsert crate permissions",
			fmt.Sprintf(
				"user_id=%d, crate_id=%d, permissions=%s",
				userID,
				crateID,
				mask,
			),
		)
	}

	return nil
}

// DeleteCratePermission removes a user's crate-scoped grant. The org
// baseline is untouched; removing the row is the only way to take back
// a crate-level addition, since OR-composition cannot subtract.
func (db DB) DeleteCratePermission(
	ctx context.Context,
	userID, crateID uint,
) error {
	_, err := gorm.G[UserCratePermission](db.dbGorm).
		Where("user_id = ? AND crate_id = ?", userID, crateID).
		Delete(ctx)
	if err != nil {
		return wrapErrorWithDetails(
			err,
			"delete crate permission",
			fmt.Sprintf("user_id=%d, crate_id=%d", userID, crateID),
		)
	}

	return nil
}

// GetOrganisationPermissions returns the stored org-scoped mask, or the
// zero mask when no row exists for the pair.
func (db DB) GetOrganisationPermissions(
	ctx context.Context,
	userID, organisationID uint,
) (perm.Permission, error) {
	row, err := gorm.G[UserOrganisationPermission](db.dbGorm).
		Where("user_id = ? AND organisation_id = ?", userID, organisationID).
		First(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return perm.None, nil
		}

		return perm.None, wrapErrorWithDetails(
			err,
			"get organisation permissions",
			fmt.Sprintf("user_id=%d, organisation_id=%d", userID, organisationID),
		)
	}

	return row.Permissions, nil
}

// GetCratePermissions returns the crate-scoped mask only, zero when no
// row exists. Effective crate rights are composed in the registry
// layer by ORing this with the organisation baseline.
func (db DB) GetCratePermissions(
	ctx context.Context,
	userID, crateID uint,
) (perm.Permission, error) {
	row, err := gorm.G[UserCratePermission](db.dbGorm).
		Where("user_id = ? AND crate_id = ?", userID, crateID).
		First(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return perm.None, nil
		}

		return perm.None, wrapErrorWithDetails(
			err,
			"get crate permissions",
			fmt.Sprintf("user_id=%d, crate_id=%d", userID, crateID),
		)
	}

	return row.Permissions, nil
}

// CrateMember pairs a user with their crate-scoped mask.
type CrateMember struct {
	User        User
	Permissions perm.Permission
}

// ListCrateMembers returns every user holding a crate-scoped grant.
func (db DB) ListCrateMembers(
	ctx context.Context,
	crateID uint,
) ([]CrateMember, error) {
	details := fmt.Sprintf("crate_id=%d", crateID)

	rows, err := gorm.G[UserCratePermission](db.dbGorm).
		Where("crate_id = ?", crateID).
		Order("user_id").
		Find(ctx)
	if err != nil {
		return nil, wrapErrorWithDetails(err, "list crate members", details)
	}

	members := make([]CrateMember, 0, len(rows))
	for _, row := range rows {
		user, err := gorm.G[User](db.dbGorm).
			Where("id = ?", row.UserID).
			First(ctx)
		if err != nil {
			return nil, wrapErrorWithDetails(err, "list crate members", details)
		}

		members = append(members, CrateMember{
			User:        user,
			Permissions: row.Permissions,
		})
	}

	return members, nil
}
