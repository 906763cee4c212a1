package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"crate-registry/orm"
)

// argon2id parameters. Changing them only affects newly hashed
// passwords; stored hashes carry their own parameters.
const (
	argonMemory      = 64 * 1024
	argonIterations  = 3
	argonParallelism = 4
	argonSaltLen     = 16
	argonKeyLen      = 32
)

var errMalformedHash = errors.New("malformed password hash")

// HashPassword returns a PHC-style argon2id string:
// argon2id$v=19$m=65536,t=3,p=4$<salt_b64>$<hash_b64>
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is required")
	}

	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey(
		[]byte(password),
		salt,
		argonIterations,
		argonMemory,
		argonParallelism,
		argonKeyLen,
	)

	enc := base64.RawStdEncoding

	return fmt.Sprintf(
		"argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory,
		argonIterations,
		argonParallelism,
		enc.EncodeToString(salt),
		enc.EncodeToString(hash),
	), nil
}

// VerifyPassword checks a password against a PHC argon2id string in
// constant time.
func VerifyPassword(password, encoded string) (bool, error) {
	if password == "" || encoded == "" {
		return false, nil
	}

	parts := strings.Split(encoded, "$")
	if len(parts) != 5 || parts[0] != "argon2id" {
		return false, errMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[1], "v=%d", &version); err != nil ||
		version != argon2.Version {
		return false, errMalformedHash
	}

	var (
		memory      uint32
		iterations  uint32
		parallelism uint8
	)
	_, err := fmt.Sscanf(
		parts[2],
		"m=%d,t=%d,p=%d",
		&memory, &iterations, &parallelism,
	)
	if err != nil {
		return false, errMalformedHash
	}

	enc := base64.RawStdEncoding

	salt, err := enc.DecodeString(parts[3])
	if err != nil {
		return false, errMalformedHash
	}

	want, err := enc.DecodeString(parts[4])
	if err != nil || len(want) < 16 {
		return false, errMalformedHash
	}

	got := argon2.IDKey(
		[]byte(password),
		salt,
		iterations,
		memory,
		parallelism,
		uint32(len(want)),
	)

	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// AuthenticateByPassword performs a password-equivalent login and
// issues a session with no SSH key reference.
func (a *Authenticator) AuthenticateByPassword(
	ctx context.Context,
	username, password string,
	opts SessionOptions,
) (*orm.Session, error) {
	user, err := a.db.GetUserByUsername(ctx, username)
	if err != nil {
		var notFound *orm.NotFoundError
		if errors.As(err, &notFound) {
			return nil, ErrInvalidCredentials
		}

		//nolint:wrapcheck // Error already wrapped
		return nil, err
	}

	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}

	ok, err := VerifyPassword(password, *user.PasswordHash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}

	return a.issueSession(ctx, user.ID, nil, opts)
}
