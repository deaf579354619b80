package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/luoxins/pixgate/internal/model"
	"github.com/luoxins/pixgate/internal/pkg/dbutil"
	appErr "github.com/luoxins/pixgate/internal/pkg/errors"
)

const passcodeTable = "passcodes"

var passcodeFields = []string{"id", "email", "purpose", "code", "used", "ctime", "expires_at"}

type PasscodeRepo struct {
	db *sql.DB
}

func NewPasscodeRepo(db *sql.DB) *PasscodeRepo {
	return &PasscodeRepo{db: db}
}

func (r *PasscodeRepo) Create(ctx context.Context, code *model.Passcode) error {
	data := map[string]interface{}{
		"id":         code.ID,
		"email":      code.Email,
		"purpose":    code.Purpose,
		"code":       code.Code,
		"used":       code.Used,
		"ctime":      code.Ctime,
		"expires_at": code.ExpiresAt,
	}
	sqlStr, args, err := builder.BuildInsert(passcodeTable, []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

// FindValid returns the most recent unused, unexpired passcode matching
// email+code+purpose. Expiry is enforced here by timestamp comparison, so a
// stale row never surfaces even if physical deletion lags behind.
func (r *PasscodeRepo) FindValid(ctx context.Context, email, code, purpose string, now int64) (*model.Passcode, error) {
	where := map[string]interface{}{
		"email":        email,
		"code":         code,
		"purpose":      purpose,
		"used":         0,
		"expires_at >": now,
		"_orderby":     "ctime desc",
		"_limit":       []uint{0, 1},
	}
	sqlStr, args, err := builder.BuildSelect(passcodeTable, where, passcodeFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	var item model.Passcode
	if err := rows.Scan(&item.ID, &item.Email, &item.Purpose, &item.Code, &item.Used, &item.Ctime, &item.ExpiresAt); err != nil {
		return nil, err
	}
	return &item, nil
}

// LatestFor returns the newest passcode for email+purpose regardless of
// state; used for the issuance cooldown check.
func (r *PasscodeRepo) LatestFor(ctx context.Context, email, purpose string) (*model.Passcode, error) {
	where := map[string]interface{}{
		"email":    email,
		"purpose":  purpose,
		"_orderby": "ctime desc",
		"_limit":   []uint{0, 1},
	}
	sqlStr, args, err := builder.BuildSelect(passcodeTable, where, passcodeFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	var item model.Passcode
	if err := rows.Scan(&item.ID, &item.Email, &item.Purpose, &item.Code, &item.Used, &item.Ctime, &item.ExpiresAt); err != nil {
		return nil, err
	}
	return &item, nil
}

// MarkUsed flips used only when it is still zero. Two callers racing on the
// same row cannot both succeed: the loser sees zero rows affected and gets
// ErrNotFound.
func (r *PasscodeRepo) MarkUsed(ctx context.Context, id string) error {
	where := map[string]interface{}{"id": id, "used": 0}
	update := map[string]interface{}{"used": 1}
	sqlStr, args, err := builder.BuildUpdate(passcodeTable, where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

// DeleteAllFor removes every passcode for email+purpose, invalidating any
// outstanding code before a new one is issued.
func (r *PasscodeRepo) DeleteAllFor(ctx context.Context, email, purpose string) error {
	where := map[string]interface{}{"email": email, "purpose": purpose}
	sqlStr, args, err := builder.BuildDelete(passcodeTable, where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *PasscodeRepo) DeleteExpiredBefore(ctx context.Context, cutoff int64) (int64, error) {
	where := map[string]interface{}{"expires_at <": cutoff}
	sqlStr, args, err := builder.BuildDelete(passcodeTable, where)
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
