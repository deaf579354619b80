package service

import (
	"context"
	"crypto/subtle"
	"net/mail"
	"time"

	"github.com/luoxins/pixgate/internal/config"
	"github.com/luoxins/pixgate/internal/model"
	appErr "github.com/luoxins/pixgate/internal/pkg/errors"
	"github.com/luoxins/pixgate/internal/pkg/jwt"
	"github.com/luoxins/pixgate/internal/pkg/password"
	"github.com/luoxins/pixgate/internal/pkg/timeutil"
	"github.com/luoxins/pixgate/internal/repo"
)

type AuthService struct {
	users     *repo.UserRepo
	passcodes *PasscodeService
	admin     config.AdminConfig
	jwtSecret []byte
	jwtTTL    time.Duration
}

func NewAuthService(users *repo.UserRepo, passcodes *PasscodeService, admin config.AdminConfig, secret []byte, ttl time.Duration) *AuthService {
	return &AuthService{
		users:     users,
		passcodes: passcodes,
		admin:     admin,
		jwtSecret: secret,
		jwtTTL:    ttl,
	}
}

// SendRegisterCode issues an email-verification code for a new account.
// Registration is the one flow where account existence is no secret: the
// caller is told outright when the address is already taken.
func (s *AuthService) SendRegisterCode(ctx context.Context, email string) (*IssueResult, error) {
	email = NormalizeEmail(email)
	if !validEmail(email) {
		return nil, appErr.ErrInvalid
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, appErr.ErrConflict
	} else if !appErr.IsNotFound(err) {
		return nil, err
	}
	return s.passcodes.Issue(ctx, email, model.PasscodePurposeRegister)
}

// Register consumes an email-verification code and creates the account with
// the email already marked verified.
func (s *AuthService) Register(ctx context.Context, email, plainPassword, code string) (*model.User, string, error) {
	email = NormalizeEmail(email)
	if !validEmail(email) {
		return nil, "", appErr.ErrInvalid
	}
	if len(plainPassword) < password.MinLength {
		return nil, "", appErr.ErrInvalid
	}
	if err := s.passcodes.Verify(ctx, email, code, model.PasscodePurposeRegister); err != nil {
		return nil, "", err
	}
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return nil, "", err
	}
	now := timeutil.NowUnix()
	user := &model.User{
		ID:            newID(),
		Email:         email,
		PasswordHash:  hash,
		EmailVerified: 1,
		Ctime:         now,
		Mtime:         now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}
	token, err := jwt.GenerateToken(user.ID, user.Email, false, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, plainPassword string) (*model.User, string, error) {
	email = NormalizeEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", appErr.ErrUnauthorized
	}
	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		return nil, "", appErr.ErrUnauthorized
	}
	token, err := jwt.GenerateToken(user.ID, user.Email, false, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// RequestPasswordReset issues a reset code when the account exists and does
// nothing when it does not. Both paths report success so the response never
// reveals whether the address is registered.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if !validEmail(email) {
		return appErr.ErrInvalid
	}
	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if appErr.IsNotFound(err) {
			return nil
		}
		return err
	}
	_, err := s.passcodes.Issue(ctx, email, model.PasscodePurposeReset)
	return err
}

// CompleteReset chains code consumption and the credential update. The code
// is consumed before the password write; if the write then fails the code is
// not restored and the user has to request a fresh one. Unknown accounts fail
// with not-found here: reaching this path already implies knowledge that a
// code was requested.
func (s *AuthService) CompleteReset(ctx context.Context, email, code, newPassword string) error {
	email = NormalizeEmail(email)
	if !validEmail(email) {
		return appErr.ErrInvalid
	}
	if len(newPassword) < password.MinLength {
		return appErr.ErrInvalid
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.passcodes.Verify(ctx, email, code, model.PasscodePurposeReset); err != nil {
		return err
	}
	hash, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, user.ID, hash, timeutil.NowUnix())
}

// AdminLogin checks the static operator credential from configuration; the
// admin identity never lives in the users table.
func (s *AuthService) AdminLogin(ctx context.Context, email, plainPassword string) (string, error) {
	_ = ctx
	if s.admin.Email == "" || s.admin.Password == "" {
		return "", appErr.ErrUnauthorized
	}
	emailOK := subtle.ConstantTimeCompare([]byte(NormalizeEmail(email)), []byte(NormalizeEmail(s.admin.Email))) == 1
	passOK := subtle.ConstantTimeCompare([]byte(plainPassword), []byte(s.admin.Password)) == 1
	if !emailOK || !passOK {
		return "", appErr.ErrUnauthorized
	}
	return jwt.GenerateToken("admin", s.admin.Email, true, s.jwtSecret, s.jwtTTL)
}

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
