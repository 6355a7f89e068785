// Package store persists users, sessions, attack runs and the audit log in
// Postgres through gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"oraclelab/internal/auth"
	"oraclelab/internal/models"
)

var ErrNotFound = errors.New("record not found")

// DefaultRunLimit caps run listings.
const DefaultRunLimit = 200

type Store struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// Open connects to Postgres and migrates the schema.
func Open(dsn string, lg *zap.SugaredLogger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if err := db.AutoMigrate(&models.Role{}, &models.User{}, &models.Session{}, &models.AttackRun{}, &models.AuditLog{}); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	return New(db, lg), nil
}

func New(db *gorm.DB, lg *zap.SugaredLogger) *Store {
	if lg == nil {
		lg = zap.NewNop().Sugar()
	}
	return &Store{db: db, log: lg}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Preload("Roles").First(&u, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	return u, notFound(err)
}

func (s *Store) FindUser(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Preload("Roles").First(&u, "id = ?", id).Error
	return u, notFound(err)
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Preload("Roles").Order("created_at desc").Find(&users).Error
	return users, err
}

// CreateUser stores a new active user holding the named roles; unknown role
// names are ignored.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash string, roles []string) (models.User, error) {
	db := s.db.WithContext(ctx)
	u := models.User{Email: strings.ToLower(strings.TrimSpace(email)), PasswordHash: passwordHash, IsActive: true}
	if len(roles) > 0 {
		if err := db.Where("name IN ?", roles).Find(&u.Roles).Error; err != nil {
			return models.User{}, err
		}
	}
	if err := db.Create(&u).Error; err != nil {
		return models.User{}, err
	}
	return u, nil
}

// UpdateUser applies p to the user and returns the stored result. Roles, when
// non-nil, replace the current set.
func (s *Store) UpdateUser(ctx context.Context, id string, p models.UserPatch) (models.User, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.First(&u, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if p.Email != nil {
			u.Email = strings.ToLower(strings.TrimSpace(*p.Email))
		}
		if p.IsActive != nil {
			u.IsActive = *p.IsActive
		}
		if p.PasswordHash != nil {
			u.PasswordHash = *p.PasswordHash
		}
		u.UpdatedAt = time.Now()
		if err := tx.Omit("Roles").Save(&u).Error; err != nil {
			return err
		}
		if p.Roles == nil {
			return nil
		}
		var roles []models.Role
		if len(p.Roles) > 0 {
			if err := tx.Where("name IN ?", p.Roles).Find(&roles).Error; err != nil {
				return err
			}
		}
		return tx.Model(&u).Association("Roles").Replace(roles)
	})
	if err != nil {
		return models.User{}, err
	}
	return s.FindUser(ctx, id)
}

// DeleteUser removes the user together with its role links and sessions.
// Attack runs and audit rows keep the dangling id.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.Session{}).Error; err != nil {
			return err
		}
		res := tx.Select("Roles").Delete(&models.User{ID: id})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *Store) CreateSession(ctx context.Context, sess models.Session) error {
	return s.db.WithContext(ctx).Create(&sess).Error
}

func (s *Store) FindSession(ctx context.Context, jti string) (models.Session, error) {
	var sess models.Session
	err := s.db.WithContext(ctx).First(&sess, "jti = ?", jti).Error
	return sess, notFound(err)
}

func (s *Store) RevokeSession(ctx context.Context, jti string) error {
	res := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("jti = ? AND revoked_at IS NULL", jti).
		Update("revoked_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RevokeUserSessions ends every open session of the user.
func (s *Store) RevokeUserSessions(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Model(&models.Session{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", time.Now()).Error
}

func (s *Store) RecordRun(ctx context.Context, run *models.AttackRun) error {
	return s.db.WithContext(ctx).Create(run).Error
}

// ListRuns returns the newest runs of userID, or of everyone when userID is
// empty.
func (s *Store) ListRuns(ctx context.Context, userID string, limit int) ([]models.AttackRun, error) {
	if limit <= 0 || limit > DefaultRunLimit {
		limit = DefaultRunLimit
	}
	q := s.db.WithContext(ctx).Order("created_at desc").Limit(limit)
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	var runs []models.AttackRun
	err := q.Find(&runs).Error
	return runs, err
}

// Audit writes an audit row. Failures are logged, never returned: the audit
// trail must not block the action it records.
func (s *Store) Audit(ctx context.Context, userID, action string, meta map[string]any) {
	m, err := models.NewJSONB(meta)
	if err != nil {
		s.log.Warnw("audit metadata", "action", action, "error", err)
		m = nil
	}
	row := models.AuditLog{Action: action, Metadata: m, CreatedAt: time.Now()}
	if userID != "" {
		row.UserID = &userID
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.log.Warnw("audit write failed", "action", action, "error", err)
	}
}

// SeedAdmin creates the roles and, if missing, the administrator account.
func (s *Store) SeedAdmin(ctx context.Context, email, password string) error {
	db := s.db.WithContext(ctx)
	for _, name := range []string{models.RoleAdministrator, models.RoleOperator} {
		if err := db.Where(models.Role{Name: name}).FirstOrCreate(&models.Role{}).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", name, err)
		}
	}
	email = strings.ToLower(strings.TrimSpace(email))
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("admin password: %w", err)
	}
	var roles []models.Role
	if err := db.Where("name IN ?", []string{models.RoleAdministrator, models.RoleOperator}).Find(&roles).Error; err != nil {
		return err
	}
	u := models.User{Email: email, PasswordHash: hash, IsActive: true, Roles: roles}
	if err := db.Create(&u).Error; err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	s.log.Infow("seeded default admin", "email", email)
	return nil
}
