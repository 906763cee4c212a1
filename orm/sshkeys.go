package orm

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AddSshKey stores a user's public key. The caller (the auth layer)
// parses the key material and derives the SHA256 fingerprint; this
// layer only persists the bytes.
func (db DB) AddSshKey(
	ctx context.Context,
	userID uint,
	name string,
	rawKey []byte,
	fingerprint string,
) (*SshKey, error) {
	if userID == 0 || len(rawKey) == 0 || fingerprint == "" {
		return nil, &BadInputError{
			Reason: fmt.Sprintf(
				"user id, key bytes and fingerprint must be provided: user_id=%d",
				userID,
			),
		}
	}

	key := SshKey{
		UUID:        uuid.New(),
		Name:        name,
		UserID:      userID,
		SshKey:      rawKey,
		Fingerprint: fingerprint,
	}

	err := gorm.G[SshKey](db.dbGorm).Create(ctx, &key)
	if err != nil {
		return nil, wrapErrorWithDetails(
			err,
			"add ssh key",
			fmt.Sprintf("user_id=%d, fingerprint=%s", userID, fingerprint),
		)
	}

	return &key, nil
}

func (db DB) ListSshKeysForUser(
	ctx context.Context,
	userID uint,
) ([]SshKey, error) {
	keys, err := gorm.G[SshKey](db.dbGorm).
		Where("user_id = ?", userID).
		Order("created_at, id").
		Find(ctx)
	if err != nil {
		return nil, wrapErrorWithDetails(
			err,
			"list ssh keys",
			fmt.Sprintf("user_id=%d", userID),
		)
	}

	return keys, nil
}

func (db DB) GetSshKeyByFingerprint(
	ctx context.Context,
	userID uint,
	fingerprint string,
) (*SshKey, error) {
	if fingerprint == "" {
		return nil, &BadInputError{Reason: "fingerprint must not be empty"}
	}

	key, err := gorm.G[SshKey](db.dbGorm).
		Where("user_id = ? AND fingerprint = ?", userID, fingerprint).
		First(ctx)
	if err != nil {
		return nil, wrapErrorWithDetails(
			err,
			"get ssh key by fingerprint",
			fmt.Sprintf("user_id=%d, fingerprint=%s", userID, fingerprint),
		)
	}

	return &key, nil
}

// TouchSshKey records a successful authentication with the key.
func (db DB) TouchSshKey(ctx context.Context, keyID uint, at time.Time) error {
	_, err := gorm.G[SshKey](db.dbGorm).
		Where("id = ?", keyID).
		Update(ctx, "last_used_at", at)
	if err != nil {
		return wrapErrorWithDetails(
			err,
			"touch ssh key",
			fmt.Sprintf("key_id=%d", keyID),
		)
	}

	return nil
}

// DeleteSshKey removes a key owned by the user.
func (db DB) DeleteSshKey(
	ctx context.Context,
	userID uint,
	keyUUID uuid.UUID,
) error {
	details := fmt.Sprintf("user_id=%d, uuid=%s", userID, keyUUID)

	rows, err := gorm.G[SshKey](db.dbGorm).
		Where("user_id = ? AND uuid = ?", userID, keyUUID).
		Delete(ctx)
	if err != nil {
		return wrapErrorWithDetails(err, "delete ssh key", details)
	}

	if rows == 0 {
		return &NotFoundError{Search: "delete ssh key (" + details + ")"}
	}

	return nil
}
