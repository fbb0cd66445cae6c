package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/court-reservation/internal/model"
	"github.com/iliyamo/court-reservation/internal/utils"
)

// AdminRepo persists desk staff accounts in the 'admins' table.
type AdminRepo struct{ DB *sql.DB }

func NewAdminRepo(db *sql.DB) *AdminRepo { return &AdminRepo{DB: db} }

// Create hashes password and inserts the admin, returning its ID.  A taken
// name or email yields ErrDuplicate.
func (r *AdminRepo) Create(ctx context.Context, name string, email *string, password string, cost int) (uint64, error) {
	name = strings.TrimSpace(name)
	var mail any
	if email != nil {
		if e := strings.ToLower(strings.TrimSpace(*email)); e != "" {
			mail = e
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO admins (name, email, password_hash) VALUES (?,?,?)",
		name, mail, hash)
	if err != nil {
		if isDuplicate(err) {
			return 0, fmt.Errorf("admin %q: %w", name, ErrDuplicate)
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func scanAdmin(s rowScanner) (model.Admin, error) {
	var (
		a     model.Admin
		email sql.NullString
	)
	err := s.Scan(&a.ID, &a.Name, &email, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Admin{}, ErrNotFound
	}
	if err != nil {
		return model.Admin{}, err
	}
	if email.Valid {
		e := email.String
		a.Email = &e
	}
	return a, nil
}

// GetByLogin fetches an admin whose name or (normalized) email equals login.
func (r *AdminRepo) GetByLogin(ctx context.Context, login string) (model.Admin, error) {
	login = strings.TrimSpace(login)
	return scanAdmin(r.DB.QueryRowContext(ctx,
		"SELECT id,name,email,password_hash,created_at,updated_at FROM admins WHERE name=? OR email=? LIMIT 1",
		login, strings.ToLower(login)))
}

// GetByID fetches an admin by id.
func (r *AdminRepo) GetByID(ctx context.Context, id uint64) (model.Admin, error) {
	return scanAdmin(r.DB.QueryRowContext(ctx,
		"SELECT id,name,email,password_hash,created_at,updated_at FROM admins WHERE id=? LIMIT 1",
		id))
}
