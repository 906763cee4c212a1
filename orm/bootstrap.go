package orm

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"crate-registry/perm"
)

// coreOrganisationUUID is the fixed identity of the seed organisation,
// kept stable across deployments so existing grants keep resolving.
var coreOrganisationUUID = uuid.MustParse("936da01f-9abd-4d9d-80c7-02af85c822a8")

// Bootstrap seeds the admin user and the "core" organisation and
// grants the admin the full mask on it. Safe to run on every startup:
// existing rows are left untouched.
func (db DB) Bootstrap(ctx context.Context, adminUsername string) error {
	if adminUsername == "" {
		return &BadInputError{Reason: "admin username must not be empty"}
	}

	err := db.dbGorm.Transaction(func(tx *gorm.DB) error {
		dbTx := db.useTransaction(tx)

		org := Organisation{
			UUID: coreOrganisationUUID,
			Name: "core",
		}

		err := gorm.G[Organisation](tx, clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(ctx, &org)
		if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			return wrapErrorWithDetails(err, "bootstrap core organisation", "core")
		}

		admin := User{
			UUID:     uuid.New(),
			Username: adminUsername,
		}

		err = gorm.G[User](tx, clause.OnConflict{
			Columns:   []clause.Column{{Name: "username"}},
			DoNothing: true,
		}).Create(ctx, &admin)
		if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			return wrapErrorWithDetails(err, "bootstrap admin user", adminUsername)
		}

		// Re-read both rows: on conflict the structs above keep their
		// zero IDs.
		seededOrg, err := dbTx.GetOrganisationByName(ctx, "core")
		if err != nil {
			return err
		}

		seededAdmin, err := dbTx.GetUserByUsername(ctx, adminUsername)
		if err != nil {
			return err
		}

		// DoNothing rather than upsert: a later administrative change
		// to the admin's mask must survive restarts.
		grant := UserOrganisationPermission{
			UserID:         seededAdmin.ID,
			OrganisationID: seededOrg.ID,
			Permissions:    perm.All(),
		}

		err = gorm.G[UserOrganisationPermission](tx, clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"},
				{Name: "organisation_id"},
			},
			DoNothing: true,
		}).Create(ctx, &grant)
		if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			return wrapErrorWithDetails(
				err, "bootstrap admin grant", adminUsername,
			)
		}

		return nil
	})
	if err != nil {
		//nolint:wrapcheck // Error already wrapped
		return err
	}

	log.Debug().
		Str("admin", adminUsername).
		Msg("bootstrap state verified")

	return nil
}
