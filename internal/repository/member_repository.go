package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/court-reservation/internal/model"
)

// MemberRepo provides access to the members table.  Credit balances are
// only ever changed with single conditional UPDATE statements; nothing in
// this file reads a balance and writes it back.
type MemberRepo struct {
	db dbtx
}

func NewMemberRepo(db dbtx) *MemberRepo { return &MemberRepo{db: db} }

const memberColumns = `id, name, email, phone, membership, credits, amount_due, paid, created_at, updated_at`

func scanMember(s rowScanner) (model.Member, error) {
	var m model.Member
	err := s.Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.Membership, &m.Credits,
		&m.AmountDue, &m.Paid, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// Create inserts a member and returns the stored row.
func (r *MemberRepo) Create(ctx context.Context, m model.Member) (model.Member, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO members (name, email, phone, membership, credits, amount_due, paid) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(m.Name), strings.ToLower(strings.TrimSpace(m.Email)), strings.TrimSpace(m.Phone),
		m.Membership, m.Credits, m.AmountDue, m.Paid)
	if err != nil {
		return model.Member{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.Member{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches a member by id.
func (r *MemberRepo) GetByID(ctx context.Context, id uint64) (model.Member, error) {
	m, err := scanMember(r.db.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Member{}, ErrNotFound
	}
	return m, err
}

// MemberFilter narrows the member listing.
type MemberFilter struct {
	Query      string // substring of name, email or phone
	Membership string // plan code, empty for all
	Desc       bool   // newest first
}

// List returns members matching f ordered by creation time.
func (r *MemberRepo) List(ctx context.Context, f MemberFilter) ([]model.Member, error) {
	var (
		conds []string
		args  []any
	)
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + q + "%"
		conds = append(conds, "(name LIKE ? OR email LIKE ? OR phone LIKE ?)")
		args = append(args, like, like, like)
	}
	if f.Membership != "" {
		conds = append(conds, "membership = ?")
		args = append(args, f.Membership)
	}
	query := `SELECT ` + memberColumns + ` FROM members`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	dir := orderDir(f.Desc)
	query += ` ORDER BY created_at ` + dir + `, id ` + dir
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DebitCredits subtracts n credits in one conditional statement that only
// matches while the balance covers n, so concurrent debits serialize in the
// storage engine and the balance can never go negative.  When nothing is
// updated the member is looked up once more to tell ErrNotFound from
// ErrInsufficientCredits.  The returned member reflects the balance just
// after the debit.
func (r *MemberRepo) DebitCredits(ctx context.Context, memberID uint64, n uint32) (model.Member, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE members SET credits = credits - ? WHERE id = ? AND credits >= ?`, n, memberID, n)
	if err != nil {
		return model.Member{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return model.Member{}, err
	}
	if affected == 0 {
		if _, err := r.GetByID(ctx, memberID); err != nil {
			return model.Member{}, err
		}
		return model.Member{}, fmt.Errorf("member %d needs %d: %w", memberID, n, ErrInsufficientCredits)
	}
	return r.GetByID(ctx, memberID)
}

// IncrementCredits adds n credits.  It is used both by cancellation (inside
// its transaction) and as the compensating step of a failed booking.
func (r *MemberRepo) IncrementCredits(ctx context.Context, memberID uint64, n uint32) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE members SET credits = credits + ? WHERE id = ?`, n, memberID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkPaid records that the membership fee was collected.
func (r *MemberRepo) MarkPaid(ctx context.Context, id uint64) (model.Member, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE members SET paid = 1, amount_due = 0 WHERE id = ?`, id)
	if err != nil {
		return model.Member{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return model.Member{}, err
	}
	if affected == 0 {
		return model.Member{}, ErrNotFound
	}
	return r.GetByID(ctx, id)
}
