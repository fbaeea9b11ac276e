// Package identity wraps credential creation and verification against the
// user store. Handlers map its sentinel errors to HTTP responses.
package identity

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/maloba12/umutulo/internal/model"
)

var (
	// ErrEmailInUse is returned when the email is already registered.
	ErrEmailInUse = errors.New("email already registered")
	// ErrWeakCredential is returned for passwords shorter than 6 characters.
	ErrWeakCredential = errors.New("password is too weak")
	// ErrInvalidCredential is returned when email or password do not match.
	ErrInvalidCredential = errors.New("invalid credentials")
	// ErrInvalidEmail is returned for malformed email addresses.
	ErrInvalidEmail = errors.New("invalid email address")
)

const minPasswordLen = 6

// Provider creates and verifies credentials in the user store.
type Provider struct {
	db *gorm.DB
}

// NewProvider returns a Provider bound to the given database handle.
func NewProvider(db *gorm.DB) *Provider {
	return &Provider{db: db}
}

func validateCredential(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") || strings.HasPrefix(email, "@") || strings.HasSuffix(email, "@") {
		return ErrInvalidEmail
	}
	if len(password) < minPasswordLen {
		return ErrWeakCredential
	}
	return nil
}

// SignUp registers a new credential and identity record in one step.
func (p *Provider) SignUp(email, password, name, role, churchID string, memberID *string) (*model.User, error) {
	return createIdentity(p.db, email, password, name, role, churchID, memberID)
}

// SignIn verifies a credential and returns the matching identity record.
func (p *Provider) SignIn(email, password string) (*model.User, error) {
	var user model.User
	if result := p.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user); result.Error != nil {
		return nil, ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredential
	}
	return &user, nil
}

// CreateSecondaryIdentity creates a credential for another person without
// touching the caller's own session. It must run on a transaction handle
// owned by the caller: the credential only becomes visible when the
// surrounding provisioning transaction commits, and is discarded with it
// on rollback, so a failing later step cannot leave an orphaned credential.
func (p *Provider) CreateSecondaryIdentity(tx *gorm.DB, email, password, name, role, churchID string, memberID *string) (*model.User, error) {
	return createIdentity(tx, email, password, name, role, churchID, memberID)
}

func createIdentity(db *gorm.DB, email, password, name, role, churchID string, memberID *string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateCredential(email, password); err != nil {
		return nil, err
	}

	var existing model.User
	if result := db.Where("email = ?", email).First(&existing); result.Error == nil {
		return nil, ErrEmailInUse
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := model.User{
		ID:       uuid.New().String(),
		Email:    email,
		Password: string(hashed),
		Name:     name,
		Role:     role,
		ChurchID: churchID,
		MemberID: memberID,
	}
	if result := db.Create(&user); result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}

// ChangePassword verifies the current password and replaces it.
func (p *Provider) ChangePassword(userID, current, next string) error {
	var user model.User
	if result := p.db.First(&user, "id = ?", userID); result.Error != nil {
		return ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)); err != nil {
		return ErrInvalidCredential
	}
	if len(next) < minPasswordLen {
		return ErrWeakCredential
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return p.db.Model(&user).Update("password", string(hashed)).Error
}
