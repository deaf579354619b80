package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/luoxins/pixgate/internal/config"
	"github.com/luoxins/pixgate/internal/model"
	appErr "github.com/luoxins/pixgate/internal/pkg/errors"
	"github.com/luoxins/pixgate/internal/pkg/timeutil"
	"github.com/luoxins/pixgate/internal/repo"
)

// PasscodeService drives the passcode lifecycle: issue replaces any
// outstanding code for the same email+purpose, verify consumes exactly once.
type PasscodeService struct {
	repo     *repo.PasscodeRepo
	notifier *CodeNotifier
	cfg      config.VerificationConfig
	now      func() int64
}

type IssueResult struct {
	ExpiresAt     int64
	ExpireMinutes int
}

func NewPasscodeService(passcodeRepo *repo.PasscodeRepo, notifier *CodeNotifier, cfg config.VerificationConfig) *PasscodeService {
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = 6
	}
	if cfg.ExpireMinutes < 0 {
		cfg.ExpireMinutes = 0
	}
	return &PasscodeService{
		repo:     passcodeRepo,
		notifier: notifier,
		cfg:      cfg,
		now:      timeutil.NowUnix,
	}
}

// Issue invalidates every prior code for email+purpose, persists a fresh one
// and dispatches it. A dispatch failure fails the whole operation: the row
// stays behind but the caller must know the code never reached anyone.
func (s *PasscodeService) Issue(ctx context.Context, email, purpose string) (*IssueResult, error) {
	email = NormalizeEmail(email)
	if email == "" || purpose == "" {
		return nil, appErr.ErrInvalid
	}
	if err := s.ensureCooldown(ctx, email, purpose); err != nil {
		return nil, err
	}
	code, err := generateCode(s.cfg.CodeLength)
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	if err := s.repo.DeleteAllFor(ctx, email, purpose); err != nil {
		return nil, err
	}
	now := s.now()
	item := &model.Passcode{
		ID:        newID(),
		Email:     email,
		Purpose:   purpose,
		Code:      code,
		Used:      0,
		Ctime:     now,
		ExpiresAt: now + int64(s.cfg.ExpireMinutes*60),
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	if err := s.notifier.Notify(email, purpose, code, s.cfg.ExpireMinutes); err != nil {
		return nil, fmt.Errorf("dispatch code: %w", err)
	}
	return &IssueResult{ExpiresAt: item.ExpiresAt, ExpireMinutes: s.cfg.ExpireMinutes}, nil
}

// Verify consumes a matching outstanding code. Wrong, expired, already-used
// and never-issued all collapse into ErrCodeInvalid.
func (s *PasscodeService) Verify(ctx context.Context, email, code, purpose string) error {
	email = NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" || purpose == "" {
		return appErr.ErrInvalid
	}
	item, err := s.repo.FindValid(ctx, email, code, purpose, s.now())
	if err != nil {
		if appErr.IsNotFound(err) {
			return appErr.ErrCodeInvalid
		}
		return err
	}
	if err := s.repo.MarkUsed(ctx, item.ID); err != nil {
		// Lost the race against a concurrent verify; same generic answer.
		if appErr.IsNotFound(err) {
			return appErr.ErrCodeInvalid
		}
		return err
	}
	return nil
}

func (s *PasscodeService) ensureCooldown(ctx context.Context, email, purpose string) error {
	item, err := s.repo.LatestFor(ctx, email, purpose)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil
		}
		return err
	}
	if item.Ctime+int64(s.cfg.CooldownSeconds) > s.now() {
		return appErr.ErrTooMany
	}
	return nil
}

func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// generateCode draws each digit independently from crypto/rand.
func generateCode(length int) (string, error) {
	digits := make([]byte, length)
	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + num.Int64())
	}
	return string(digits), nil
}
