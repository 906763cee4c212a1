package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/ssh"

	"crate-registry/orm"
)

// AddKey registers a public key for the user. Accepts authorized_keys
// format; the key is stored in SSH wire format together with its
// SHA256 fingerprint.
func (a *Authenticator) AddKey(
	ctx context.Context,
	user *orm.User,
	name string,
	authorizedKey []byte,
) (*orm.SshKey, error) {
	pub, _, _, _, err := ssh.ParseAuthorizedKey(authorizedKey)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	key, err := a.db.AddSshKey(
		ctx,
		user.ID,
		name,
		pub.Marshal(),
		ssh.FingerprintSHA256(pub),
	)
	if err != nil {
		//nolint:wrapcheck // Error already wrapped
		return nil, err
	}

	return key, nil
}

// AuthenticateBySSHKey verifies that the presented public key belongs
// to the user and that sig is a valid signature over challenge, then
// issues a session bound to that key. The key's last_used_at is bumped
// on success. No session is issued on any failure path.
func (a *Authenticator) AuthenticateBySSHKey(
	ctx context.Context,
	user *orm.User,
	challenge []byte,
	sig *ssh.Signature,
	presented ssh.PublicKey,
	opts SessionOptions,
) (*orm.Session, error) {
	if user == nil || sig == nil || presented == nil {
		return nil, ErrUnknownKey
	}

	stored, err := a.db.GetSshKeyByFingerprint(
		ctx,
		user.ID,
		ssh.FingerprintSHA256(presented),
	)
	if err != nil {
		var notFound *orm.NotFoundError
		if errors.As(err, &notFound) {
			return nil, ErrUnknownKey
		}

		//nolint:wrapcheck // Error already wrapped
		return nil, err
	}

	// Verify against the stored bytes, not the presented key: a
	// fingerprint collision must not be enough to authenticate.
	pub, err := ssh.ParsePublicKey(stored.SshKey)
	if err != nil {
		return nil, fmt.Errorf("parse stored public key: %w", err)
	}

	if err := pub.Verify(challenge, sig); err != nil {
		return nil, ErrBadSignature
	}

	if err := a.db.TouchSshKey(ctx, stored.ID, a.now()); err != nil {
		//nolint:wrapcheck // Error already wrapped
		return nil, err
	}

	keyID := stored.ID

	return a.issueSession(ctx, user.ID, &keyID, opts)
}
