package orm

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

func (db DB) CreateSession(ctx context.Context, session *Session) error {
	if session == nil {
		return &BadInputError{Reason: "session must not be nil"}
	}

	if session.UserID == 0 || session.SessionKey == "" {
		return &BadInputError{
			Reason: "session user id and key must be provided",
		}
	}

	err := gorm.G[Session](db.dbGorm).Create(ctx, session)
	if err != nil {
		// The key is a secret and never appears in error details.
		return wrapErrorWithDetails(
			err,
			"create session",
			fmt.Sprintf("user_id=%d", session.UserID),
		)
	}

	return nil
}

func (db DB) GetSessionByKey(
	ctx context.Context,
	key string,
) (*Session, error) {
	if key == "" {
		return nil, &BadInputError{Reason: "session key must not be empty"}
	}

	session, err := gorm.G[Session](db.dbGorm).
		Where("session_key = ?", key).
		First(ctx)
	if err != nil {
		return nil, wrapErrorWithDetails(err, "get session by key", "session")
	}

	return &session, nil
}

// DeleteSessionByKey revokes a session. Idempotent: deleting an absent
// key is not an error.
func (db DB) DeleteSessionByKey(ctx context.Context, key string) error {
	if key == "" {
		return &BadInputError{Reason: "session key must not be empty"}
	}

	_, err := gorm.G[Session](db.dbGorm).
		Where("session_key = ?", key).
		Delete(ctx)
	if err != nil {
		return wrapErrorWithDetails(err, "delete session", "session")
	}

	return nil
}

// DeleteExpiredSessions removes sessions whose expiry has passed.
// Sessions without an expiry are never touched.
func (db DB) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	rows, err := gorm.G[Session](db.dbGorm).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Delete(ctx)
	if err != nil {
		return 0, wrapErrorWithDetails(err, "delete expired sessions", "sessions")
	}

	return rows, nil
}
