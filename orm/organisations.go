package orm

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (db DB) CreateOrganisation(
	ctx context.Context,
	name string,
) (*Organisation, error) {
	if name == "" {
		return nil, &BadInputError{Reason: "organisation name must not be empty"}
	}

	org := Organisation{
		UUID: uuid.New(),
		Name: name,
	}

	err := gorm.G[Organisation](db.dbGorm).Create(ctx, &org)
	if err != nil {
		return nil, wrapErrorWithDetails(
			err,
			"create organisation",
			fmt.Sprintf("name=%q", name),
		)
	}

	return &org, nil
}

func (db DB) GetOrganisationByName(
	ctx context.Context,
	name string,
) (*Organisation, error) {
	if name == "" {
		return nil, &BadInputError{Reason: "organisation name must not be empty"}
	}

	org, err := gorm.G[Organisation](db.dbGorm).Where(&Organisation{
		Name: name,
	}).First(ctx)
	if err != nil {
		return nil, wrapErrorWithDetails(
			err,
			"get organisation by name",
			fmt.Sprintf("name=%q", name),
		)
	}

	return &org, nil
}

func (db DB) GetOrganisationByUUID(
	ctx context.Context,
	id uuid.UUID,
) (*Organisation, error) {
	org, err := gorm.G[Organisation](db.dbGorm).Where(&Organisation{
		UUID: id,
	}).First(ctx)
	if err != nil {
		return nil, wrapErrorWithDetails(
			err,
			"get organisation by uuid",
			fmt.Sprintf("uuid=%s", id),
		)
	}

	return &org, nil
}

// DeleteOrganisation removes an organisation. No cascade rule exists:
// an organisation that still owns crates cannot be deleted, its crates
// must be reassigned or removed explicitly first.
func (db DB) DeleteOrganisation(ctx context.Context, name string) error {
	if name == "" {
		return &BadInputError{Reason: "organisation name must not be empty"}
	}

	details := fmt.Sprintf("name=%q", name)

	org, err := db.GetOrganisationByName(ctx, name)
	if err != nil {
		//nolint:wrapcheck // Error already wrapped
		return err
	}

	// The statement carries its own guard: the row is only removed when
	// no crate references it, so a crate created after the lookup still
	// keeps the organisation alive.
	result := db.dbGorm.WithContext(ctx).
		Where(
			"id = ? AND NOT EXISTS (SELECT 1 FROM crates WHERE crates.organisation_id = organisations.id)",
			org.ID,
		).
		Delete(&Organisation{})
	if result.Error != nil {
		return wrapErrorWithDetails(result.Error, "delete organisation", details)
	}

	if result.RowsAffected == 0 {
		count, err := gorm.G[Crate](db.dbGorm).
			Where("organisation_id = ?", org.ID).
			Count(ctx, "*")
		if err != nil {
			return wrapErrorWithDetails(err, "count organisation crates", details)
		}

		if count > 0 {
			return &ConflictError{
				Conflict: fmt.Sprintf(
					"organisation %q still owns %d crate(s)", name, count,
				),
			}
		}

		return &NotFoundError{Search: "delete organisation (" + details + ")"}
	}

	return nil
}
