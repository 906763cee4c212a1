// Package auth turns presented credentials (session keys, SSH key
// signatures, passwords) into authenticated users and issues the
// bearer sessions the rest of the registry trusts.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"crate-registry/orm"
)

var (
	// ErrInvalidOrExpired covers both an unknown session key and one
	// whose expiry has passed. Callers cannot distinguish the two.
	ErrInvalidOrExpired = errors.New("session key invalid or expired")

	// ErrUnknownKey is returned when the presented SSH public key does
	// not belong to the user.
	ErrUnknownKey = errors.New("unknown ssh key")

	// ErrBadSignature is returned when the challenge signature does
	// not verify against the presented key.
	ErrBadSignature = errors.New("bad challenge signature")

	// ErrInvalidCredentials is returned on a failed password login.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type Authenticator struct {
	db  orm.DB
	now func() time.Time
}

func New(db orm.DB) *Authenticator {
	return &Authenticator{
		db:  db,
		now: time.Now,
	}
}

// SessionOptions carries the request-scoped attributes recorded on a
// newly issued session. A zero TTL issues a non-expiring session.
type SessionOptions struct {
	TTL       time.Duration
	UserAgent string
	IP        string
}

// AuthenticateBySessionKey resolves a bearer session key to its user.
func (a *Authenticator) AuthenticateBySessionKey(
	ctx context.Context,
	key string,
) (*orm.User, error) {
	if key == "" {
		return nil, ErrInvalidOrExpired
	}

	session, err := a.db.GetSessionByKey(ctx, key)
	if err != nil {
		var notFound *orm.NotFoundError
		if errors.As(err, &notFound) {
			return nil, ErrInvalidOrExpired
		}

		//nolint:wrapcheck // Error already wrapped
		return nil, err
	}

	if session.ExpiresAt != nil && session.ExpiresAt.Before(a.now()) {
		return nil, ErrInvalidOrExpired
	}

	user, err := a.db.GetUserByID(ctx, session.UserID)
	if err != nil {
		//nolint:wrapcheck // Error already wrapped
		return nil, err
	}

	return user, nil
}

// Revoke deletes the session for the given key. Idempotent.
func (a *Authenticator) Revoke(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	//nolint:wrapcheck // Error already wrapped
	return a.db.DeleteSessionByKey(ctx, key)
}

// issueSession creates and persists a session for the user. The key
// itself is returned only through the session record, never logged.
func (a *Authenticator) issueSession(
	ctx context.Context,
	userID uint,
	sshKeyID *uint,
	opts SessionOptions,
) (*orm.Session, error) {
	key, err := NewSessionKey()
	if err != nil {
		return nil, err
	}

	session := orm.Session{
		UserID:       userID,
		SessionKey:   key,
		UserSshKeyID: sshKeyID,
		IP:           opts.IP,
	}

	if opts.TTL > 0 {
		expires := a.now().Add(opts.TTL)
		session.ExpiresAt = &expires
	}

	if opts.UserAgent != "" {
		session.UserAgent = &opts.UserAgent
	}

	if err := a.db.CreateSession(ctx, &session); err != nil {
		//nolint:wrapcheck // Error already wrapped
		return nil, err
	}

	log.Debug().
		Uint("user_id", userID).
		Bool("ssh", sshKeyID != nil).
		Msg("session issued")

	return &session, nil
}
