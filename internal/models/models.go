package models

import "time"

// Role names seeded at boot.
const (
	RoleAdministrator = "Administrator"
	RoleOperator      = "Operator"
)

type Role struct {
	ID   int    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

type User struct {
	ID           string    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	Roles        []Role    `gorm:"many2many:user_roles" json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// UserPatch lists the user fields an update touches; nil fields stay as they are.
type UserPatch struct {
	Email        *string
	IsActive     *bool
	PasswordHash *string
	Roles        []string
}

type Session struct {
	JTI       string     `gorm:"primaryKey;size:64" json:"jti"`
	UserID    string     `gorm:"type:uuid;index;not null" json:"user_id"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Active reports whether the session may still authenticate requests.
func (s Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// AttackRun records the outcome of one attack against a lab. Rows are
// written for operators to review; nothing reads them back into an attack.
type AttackRun struct {
	ID           string    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID       string    `gorm:"type:uuid;index;not null" json:"user_id"`
	LabID        string    `gorm:"type:uuid;index;not null" json:"lab_id"`
	Kind         string    `gorm:"not null" json:"kind"`
	Algorithm    string    `gorm:"not null" json:"algorithm"`
	Workers      int       `gorm:"not null" json:"workers"`
	Success      bool      `gorm:"not null" json:"success"`
	Queries      int64     `gorm:"not null" json:"queries"`
	ElapsedMS    int64     `gorm:"not null" json:"elapsed_ms"`
	RecoveredHex string    `json:"recovered_hex"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}

type AuditLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    *string   `gorm:"type:uuid" json:"user_id,omitempty"`
	Action    string    `gorm:"not null" json:"action"`
	Metadata  JSONB     `gorm:"type:jsonb;default:'{}'::jsonb" json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}
