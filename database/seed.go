package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/student-records/model"
	"github.com/sahilchouksey/student-records/utils/auth"
	"github.com/sahilchouksey/student-records/utils/validation"
	"gorm.io/gorm"
)

var (
	ErrInvalidAdminEmail = errors.New("admin email is not a valid email address")
	ErrWeakPassword      = errors.New("admin password is too weak")
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// AdminAccount is the input for SeedAdmin
type AdminAccount struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// SeedAdmin creates the admin account or, when the email already exists, resets
// its password and role. Resetting bumps the token version so older sessions end.
func (s *Seeder) SeedAdmin(account AdminAccount) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(account.Email))
	if !validation.ValidateEmail(email) {
		return nil, ErrInvalidAdminEmail
	}
	if account.Role == "" {
		account.Role = model.RoleAdmin
	}
	if !model.IsAdminRole(account.Role) {
		return nil, fmt.Errorf("role %q cannot review institute requests", account.Role)
	}
	if account.Name == "" {
		account.Name = "System Administrator"
	}

	if ok, problems := validation.ValidatePassword(account.Password); !ok {
		return nil, fmt.Errorf("%w: %s", ErrWeakPassword, strings.Join(problems, "; "))
	}

	passwordHash, err := auth.HashPassword(account.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var user model.User
	err = s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ?", email).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = model.User{
				Email:        email,
				PasswordHash: passwordHash,
				Name:         account.Name,
				Role:         account.Role,
			}
			return tx.Create(&user).Error
		case err != nil:
			return err
		}

		user.PasswordHash = passwordHash
		user.Name = account.Name
		user.Role = account.Role
		user.TokenVersion++
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, err
	}

	log.Infow("admin account seeded", "user_id", user.ID, "email", user.Email, "role", user.Role)
	return &user, nil
}
