package orm

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (db DB) CreateUser(
	ctx context.Context,
	username string,
	passwordHash *string,
) (*User, error) {
	if username == "" {
		return nil, &BadInputError{Reason: "username must not be empty"}
	}

	user := User{
		UUID:         uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
	}

	err := gorm.G[User](db.dbGorm).Create(ctx, &user)
	if err != nil {
		return nil, wrapErrorWithDetails(
			err,
			"create user",
			fmt.Sprintf("username=%q", username),
		)
	}

	return &user, nil
}

func (db DB) GetUserByUsername(
	ctx context.Context,
	username string,
) (*User, error) {
	if username == "" {
		return nil, &BadInputError{Reason: "username must not be empty"}
	}

	user, err := gorm.G[User](db.dbGorm).Where(&User{
		Username: username,
	}).First(ctx)
	if err != nil {
		return nil, wrapErrorWithDetails(
			err,
			"get user by username",
			fmt.Sprintf("username=%q", username),
		)
	}

	return &user, nil
}

func (db DB) GetUserByID(
	ctx context.Context,
	id uint,
) (*User, error) {
	user, err := gorm.G[User](db.dbGorm).Where("id = ?", id).First(ctx)
	if err != nil {
		return nil, wrapErrorWithDetails(
			err,
			"get user by id",
			fmt.Sprintf("id=%d", id),
		)
	}

	return &user, nil
}

func (db DB) GetUserByUUID(
	ctx context.Context,
	id uuid.UUID,
) (*User, error) {
	user, err := gorm.G[User](db.dbGorm).Where(&User{
		UUID: id,
	}).First(ctx)
	if err != nil {
		return nil, wrapErrorWithDetails(
			err,
			"get user by uuid",
			fmt.Sprintf("uuid=%s", id),
		)
	}

	return &user, nil
}
