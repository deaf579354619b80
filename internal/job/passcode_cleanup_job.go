package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/luoxins/pixgate/internal/repo"
)

// PasscodeCleanupJob physically deletes passcode rows well past their expiry.
// Lookups already filter by expiry, so retention only affects table size.
type PasscodeCleanupJob struct {
	passcodeRepo *repo.PasscodeRepo
	retain       time.Duration
}

func NewPasscodeCleanupJob(passcodeRepo *repo.PasscodeRepo, retain time.Duration) *PasscodeCleanupJob {
	return &PasscodeCleanupJob{passcodeRepo: passcodeRepo, retain: retain}
}

func (j *PasscodeCleanupJob) Name() string {
	return "passcode_cleanup"
}

func (j *PasscodeCleanupJob) Run(ctx context.Context) error {
	if j.passcodeRepo == nil {
		return nil
	}
	retain := j.retain
	if retain <= 0 {
		retain = 24 * time.Hour
	}
	cutoff := time.Now().Add(-retain).Unix()
	deleted, err := j.passcodeRepo.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		logutil.GetLogger(ctx).Info("expired passcodes removed", zap.Int64("count", deleted))
	}
	return nil
}
