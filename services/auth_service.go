package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/toolshed/common"
	"github.com/cppla/toolshed/models"
	"github.com/cppla/toolshed/utils"
)

const (
	minPasswordLen = 6
	// bcrypt ignores everything past 72 bytes
	maxPasswordLen = 72

	verifySubject = "Verify Your Email"
)

// AuthService manages accounts: registration with email verification, and credential checks.
type AuthService struct {
	db      *gorm.DB
	mailer  utils.Mailer
	baseURL string
	log     *zap.Logger
}

// NewAuthService creates an AuthService. baseURL is the externally reachable origin used in
// verification links, e.g. "https://tools.example.org".
func NewAuthService(db *gorm.DB, mailer utils.Mailer, baseURL string, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{db: db, mailer: mailer, baseURL: strings.TrimRight(baseURL, "/"), log: log}
}

// Register creates an unverified account and mails its verification link. When sending the
// mail fails the account is kept and the error is returned.
func (s *AuthService) Register(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", common.ErrValidation)
	}
	if l := len(password); l < minPasswordLen || l > maxPasswordLen {
		return nil, fmt.Errorf("%w: password must be %d-%d characters", common.ErrValidation, minPasswordLen, maxPasswordLen)
	}

	var existing models.User
	err := s.db.WithContext(ctx).Select("id").Where("email = ?", email).First(&existing).Error
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: email already registered", common.ErrConflict)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("%w: look up email: %v", common.ErrStore, err)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	token, err := newVerificationToken()
	if err != nil {
		return nil, fmt.Errorf("generate verification token: %w", err)
	}

	user := models.User{Email: email, PasswordHash: hash, VerificationToken: &token}
	if err := s.db.WithContext(ctx).Omit("Tools").Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: email already registered", common.ErrConflict)
		}
		return nil, fmt.Errorf("%w: insert user: %v", common.ErrStore, err)
	}

	if err := s.mailer.SendMail(email, verifySubject, s.verificationBody(token)); err != nil {
		s.log.Error("verification mail failed", zap.Uint("user_id", user.ID), zap.Error(err))
		return nil, fmt.Errorf("send verification mail: %w", err)
	}
	return &user, nil
}

// VerificationLink is the URL mailed to new users.
func (s *AuthService) VerificationLink(token string) string {
	return s.baseURL + "/api/v1/auth/verify?token=" + url.QueryEscape(token)
}

func (s *AuthService) verificationBody(token string) string {
	return fmt.Sprintf(`<a href="%s">Verify Email</a>`, html.EscapeString(s.VerificationLink(token)))
}

// Verify marks the account holding token as verified and consumes the token.
func (s *AuthService) Verify(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: token is required", common.ErrValidation)
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("verification_token = ?", token).
		Updates(map[string]interface{}{"verified": true, "verification_token": nil})
	if res.Error != nil {
		return fmt.Errorf("%w: verify user: %v", common.ErrStore, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: invalid or expired token", common.ErrValidation)
	}
	return nil
}

// Login checks credentials. Unknown and unverified accounts are rejected alike.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: look up user: %v", common.ErrStore, err)
	}
	if err != nil || !user.Verified {
		return nil, fmt.Errorf("%w: invalid email or unverified account", common.ErrValidation)
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, fmt.Errorf("%w: invalid password", common.ErrValidation)
	}
	return &user, nil
}

// Me loads the account of an authenticated caller.
func (s *AuthService) Me(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", common.ErrNotFound, userID)
		}
		return nil, fmt.Errorf("%w: load user: %v", common.ErrStore, err)
	}
	return &user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newVerificationToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
