package orm

import (
	"time"

	"github.com/google/uuid"

	"crate-registry/perm"
)

// Every entity carries a sequential primary key for joins plus a stable
// UUID for external exposure. The numeric ID never leaves this process.

type User struct {
	ID       uint      `gorm:"primaryKey"                    json:"-"`
	UUID     uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	Username string    `gorm:"size:255;uniqueIndex;not null" json:"username"`

	// PasswordHash holds an argon2id PHC string; nil for users that
	// only authenticate with SSH keys.
	PasswordHash *string `gorm:"size:255" json:"-"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

type Organisation struct {
	ID   uint      `gorm:"primaryKey"                    json:"-"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	Name string    `gorm:"size:255;uniqueIndex;not null" json:"name"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// Crate names are unique per organisation, not globally: two
// organisations may each own a crate with the same name.
type Crate struct {
	ID             uint   `gorm:"primaryKey"                                        json:"-"`
	Name           string `gorm:"size:255;not null;uniqueIndex:idx_crates_org_name" json:"name"`
	OrganisationID uint   `gorm:"not null;uniqueIndex:idx_crates_org_name"          json:"-"`

	Organisation Organisation `gorm:"foreignKey:OrganisationID" json:"-"`

	Readme        *string `json:"readme,omitempty"`
	Description   *string `gorm:"size:4096" json:"description,omitempty"`
	Repository    *string `gorm:"size:255"  json:"repository,omitempty"`
	Homepage      *string `gorm:"size:255"  json:"homepage,omitempty"`
	Documentation *string `gorm:"size:255"  json:"documentation,omitempty"`
}

// CrateVersion is immutable once written except for the Yanked flag.
// Dependencies and Features are opaque blobs owned by the publishing
// client; this layer stores and returns the bytes unchanged.
type CrateVersion struct {
	ID      uint   `gorm:"primaryKey"                                             json:"-"`
	CrateID uint   `gorm:"not null;uniqueIndex:idx_versions_crate_version"        json:"-"`
	Version string `gorm:"size:255;not null;uniqueIndex:idx_versions_crate_version" json:"version"`

	// FilesystemObject is an opaque key into the external artifact
	// store; artifact bytes never pass through this layer.
	FilesystemObject string `gorm:"size:255;not null" json:"filesystemObject"`
	SizeBytes        int64  `gorm:"not null"          json:"size"`
	Yanked           bool   `gorm:"not null;default:false" json:"yanked"`
	Checksum         string `gorm:"size:64;not null"  json:"checksum"`
	Dependencies     []byte `json:"dependencies,omitempty"`
	Features         []byte `json:"features,omitempty"`
	Links            *string `gorm:"size:255" json:"links,omitempty"`

	// UserID attributes the version to its publisher.
	UserID uint `gorm:"not null" json:"-"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// UserOrganisationPermission is the sole source of org-scoped rights
// for a user: one row per (user, organisation) pair.
type UserOrganisationPermission struct {
	ID             uint            `gorm:"primaryKey"`
	UserID         uint            `gorm:"not null;uniqueIndex:idx_user_org_perm"`
	OrganisationID uint            `gorm:"not null;uniqueIndex:idx_user_org_perm"`
	Permissions    perm.Permission `gorm:"not null;default:0"`
}

// UserCratePermission augments org-scoped rights for a single crate.
// Composition with the org mask is bitwise OR, so a crate grant can
// only ever add capabilities.
type UserCratePermission struct {
	ID          uint            `gorm:"primaryKey"`
	UserID      uint            `gorm:"not null;uniqueIndex:idx_user_crate_perm"`
	CrateID     uint            `gorm:"not null;uniqueIndex:idx_user_crate_perm"`
	Permissions perm.Permission `gorm:"not null;default:0"`
}

type SshKey struct {
	ID   uint      `gorm:"primaryKey"                    json:"-"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	Name string    `gorm:"size:255;not null"             json:"name"`

	UserID uint `gorm:"not null;index" json:"-"`

	// SshKey is the public key in SSH wire format; Fingerprint is its
	// SHA256 fingerprint, used for lookup during authentication.
	SshKey      []byte `gorm:"not null"                json:"-"`
	Fingerprint string `gorm:"size:64;not null;index"  json:"fingerprint"`

	CreatedAt  time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
}

// Session is a bearer credential: possession of SessionKey is
// sufficient, so the key must never be logged. A nil ExpiresAt means
// the session never expires.
type Session struct {
	ID         uint   `gorm:"primaryKey"`
	UserID     uint   `gorm:"not null;index"`
	SessionKey string `gorm:"size:64;uniqueIndex;not null"`

	// UserSshKeyID is set when the session was issued through an
	// SSH-key-authenticated exchange, nil for password logins.
	UserSshKeyID *uint

	ExpiresAt *time.Time
	UserAgent *string `gorm:"size:255"`
	IP        string  `gorm:"size:64"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}
