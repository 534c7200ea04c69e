package users

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bodega-erp/bodega/internal/shared"
)

// RepositoryPort defines data access methods for the user directory.
type RepositoryPort interface {
	ListUsers(ctx context.Context, page, limit int) ([]User, int, error)
	GetUser(ctx context.Context, id int64) (User, error)
	ListByRole(ctx context.Context, role string, page, limit int, search string) ([]Customer, int, error)
	GetByRole(ctx context.Context, role string, id int64) (Customer, error)
	CreateUser(ctx context.Context, input CustomerInput, passwordHash string) (int64, error)
	UpdateUser(ctx context.Context, id int64, input CustomerInput) error
	DeleteUser(ctx context.Context, id int64) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ RepositoryPort = (*Repository)(nil)

func (r *Repository) ListUsers(ctx context.Context, page, limit int) ([]User, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.name, COALESCE(u.surname, ''), u.email, COALESCE(u.phone, ''), COALESCE(u.address, ''),
		       u.email_verified_at, COALESCE(u.is_active, TRUE), u.created_at, u.updated_at,
		       COALESCE(array_agg(r.name) FILTER (WHERE r.name IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN role_user ru ON ru.user_id = u.id
		LEFT JOIN roles r ON r.id = ru.role_id
		GROUP BY u.id
		ORDER BY u.name, u.id
		LIMIT $1 OFFSET $2`, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Surname, &u.Email, &u.Phone, &u.Address,
			&u.EmailVerifiedAt, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &u.Roles); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `
		SELECT u.id, u.name, COALESCE(u.surname, ''), u.email, COALESCE(u.phone, ''), COALESCE(u.address, ''),
		       u.email_verified_at, COALESCE(u.is_active, TRUE), u.created_at, u.updated_at,
		       COALESCE(array_agg(r.name) FILTER (WHERE r.name IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN role_user ru ON ru.user_id = u.id
		LEFT JOIN roles r ON r.id = ru.role_id
		WHERE u.id = $1
		GROUP BY u.id`, id).
		Scan(&u.ID, &u.Name, &u.Surname, &u.Email, &u.Phone, &u.Address,
			&u.EmailVerifiedAt, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &u.Roles)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// ListByRole pages through users holding the named role. The customer
// directory is this query with role = 'customer'.
func (r *Repository) ListByRole(ctx context.Context, role string, page, limit int, search string) ([]Customer, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	base := `
		FROM users u
		JOIN role_user ru ON ru.user_id = u.id
		JOIN roles r ON r.id = ru.role_id
		WHERE r.name = $1`
	args := []interface{}{role}
	if search != "" {
		args = append(args, "%"+search+"%")
		n := strconv.Itoa(len(args))
		base += ` AND (u.name ILIKE $` + n + ` OR u.surname ILIKE $` + n + ` OR u.email ILIKE $` + n + `)`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) `+base, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit)
	limitArg := strconv.Itoa(len(args))
	args = append(args, (page-1)*limit)
	offsetArg := strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.name, COALESCE(u.surname, ''), u.email, COALESCE(u.phone, ''), COALESCE(u.address, '') `+
		base+` ORDER BY u.name, u.id LIMIT $`+limitArg+` OFFSET $`+offsetArg, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Surname, &c.Email, &c.Phone, &c.Address); err != nil {
			return nil, 0, err
		}
		customers = append(customers, c)
	}
	return customers, total, rows.Err()
}

func (r *Repository) GetByRole(ctx context.Context, role string, id int64) (Customer, error) {
	var c Customer
	err := r.pool.QueryRow(ctx, `
		SELECT u.id, u.name, COALESCE(u.surname, ''), u.email, COALESCE(u.phone, ''), COALESCE(u.address, '')
		FROM users u
		JOIN role_user ru ON ru.user_id = u.id
		JOIN roles r ON r.id = ru.role_id
		WHERE r.name = $1 AND u.id = $2`, role, id).
		Scan(&c.ID, &c.Name, &c.Surname, &c.Email, &c.Phone, &c.Address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, shared.ErrNotFound
		}
		return Customer{}, err
	}
	return c, nil
}

func (r *Repository) CreateUser(ctx context.Context, input CustomerInput, passwordHash string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (name, surname, email, phone, address, password_hash, email_verified_at, is_active, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), NULLIF($5, ''), $6, NOW(), TRUE, NOW(), NOW())
		RETURNING id`,
		input.Name, input.Surname, input.Email, input.Phone, input.Address, passwordHash).Scan(&id)
	if err != nil {
		return 0, mapUserError(err)
	}
	return id, nil
}

func (r *Repository) UpdateUser(ctx context.Context, id int64, input CustomerInput) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET name = $2, surname = NULLIF($3, ''), email = $4, phone = NULLIF($5, ''),
		    address = NULLIF($6, ''), updated_at = NOW()
		WHERE id = $1`,
		id, input.Name, input.Surname, input.Email, input.Phone, input.Address)
	if err != nil {
		return mapUserError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return mapUserError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func mapUserError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return shared.ErrDuplicateName
		case "23503":
			return shared.ErrIntegrityConflict
		}
	}
	return err
}
