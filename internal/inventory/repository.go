package inventory

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bodega-erp/bodega/internal/platform/db"
)

// TxRepository exposes the mutations available inside a stock
// transaction. Implementations must hold the product row lock for the
// duration of the enclosing transaction.
type TxRepository interface {
	LockProductStock(ctx context.Context, productID int64) (int64, error)
	ApplyStockDelta(ctx context.Context, productID, delta int64) error
	InsertMovement(ctx context.Context, kind MovementKind, input MovementInput) (Movement, error)
	GetMovement(ctx context.Context, kind MovementKind, id int64) (Movement, error)
	UpdateMovement(ctx context.Context, id int64, productID, quantity int64, note string) error
	DeleteMovement(ctx context.Context, id int64) error
}

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, kind MovementKind, filters ListFilters) ([]Movement, int, error)
	Get(ctx context.Context, kind MovementKind, id int64) (Movement, error)
	RecentForProduct(ctx context.Context, productID int64, limit int) ([]Movement, error)
}

// Repository provides PostgreSQL backed persistence for stock
// movements.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ RepositoryPort = (*Repository)(nil)

const movementSelect = `
	SELECT m.id, m.kind, m.product_id, m.quantity, COALESCE(m.note, ''), m.user_id,
	       m.created_at, m.updated_at,
	       p.name, p.code, COALESCE(u.name || ' ' || u.surname, '')
	FROM stock_movements m
	JOIN products p ON p.id = m.product_id
	LEFT JOIN users u ON u.id = m.user_id`

// WithTx runs fn inside a REPEATABLE READ transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *Repository) List(ctx context.Context, kind MovementKind, filters ListFilters) ([]Movement, int, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.Limit < 1 {
		filters.Limit = 10
	}

	query := movementSelect + ` WHERE m.kind = $1`
	args := []interface{}{string(kind)}

	countQuery := `SELECT COUNT(*) FROM stock_movements m WHERE m.kind = $1`
	countArgs := []interface{}{string(kind)}

	if filters.ProductID > 0 {
		args = append(args, filters.ProductID)
		query += ` AND m.product_id = $` + strconv.Itoa(len(args))
		countArgs = append(countArgs, filters.ProductID)
		countQuery += ` AND m.product_id = $` + strconv.Itoa(len(countArgs))
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filters.Limit)
	query += ` ORDER BY m.created_at DESC, m.id DESC LIMIT $` + strconv.Itoa(len(args))
	args = append(args, (filters.Page-1)*filters.Limit)
	query += ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	movements, err := scanMovements(rows)
	if err != nil {
		return nil, 0, err
	}
	return movements, total, nil
}

func (r *Repository) Get(ctx context.Context, kind MovementKind, id int64) (Movement, error) {
	row := r.pool.QueryRow(ctx, movementSelect+` WHERE m.id = $1 AND m.kind = $2`, id, string(kind))
	m, err := scanMovement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Movement{}, ErrMovementNotFound
		}
		return Movement{}, err
	}
	return m, nil
}

func (r *Repository) RecentForProduct(ctx context.Context, productID int64, limit int) ([]Movement, error) {
	if limit < 1 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx, movementSelect+`
		WHERE m.product_id = $1
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $2`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMovements(rows)
}

type txRepository struct {
	tx pgx.Tx
}

// LockProductStock reads the product's stock under FOR UPDATE so no
// concurrent transaction can move it until this one finishes.
func (t *txRepository) LockProductStock(ctx context.Context, productID int64) (int64, error) {
	var stock int64
	err := t.tx.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrProductNotFound
		}
		return 0, err
	}
	return stock, nil
}

func (t *txRepository) ApplyStockDelta(ctx context.Context, productID, delta int64) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1`, productID, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (t *txRepository) InsertMovement(ctx context.Context, kind MovementKind, input MovementInput) (Movement, error) {
	var m Movement
	err := t.tx.QueryRow(ctx, `
		INSERT INTO stock_movements (kind, product_id, quantity, note, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NOW(), NOW())
		RETURNING id, kind, product_id, quantity, COALESCE(note, ''), user_id, created_at, updated_at`,
		string(kind), input.ProductID, input.Quantity, input.Note, input.ActorID).
		Scan(&m.ID, &m.Kind, &m.ProductID, &m.Quantity, &m.Note, &m.UserID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return Movement{}, err
	}
	return m, nil
}

func (t *txRepository) GetMovement(ctx context.Context, kind MovementKind, id int64) (Movement, error) {
	var m Movement
	err := t.tx.QueryRow(ctx, `
		SELECT id, kind, product_id, quantity, COALESCE(note, ''), user_id, created_at, updated_at
		FROM stock_movements
		WHERE id = $1 AND kind = $2
		FOR UPDATE`, id, string(kind)).
		Scan(&m.ID, &m.Kind, &m.ProductID, &m.Quantity, &m.Note, &m.UserID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Movement{}, ErrMovementNotFound
		}
		return Movement{}, err
	}
	return m, nil
}

func (t *txRepository) UpdateMovement(ctx context.Context, id int64, productID, quantity int64, note string) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE stock_movements SET product_id = $2, quantity = $3, note = NULLIF($4, ''), updated_at = NOW()
		WHERE id = $1`, id, productID, quantity, note)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMovementNotFound
	}
	return nil
}

func (t *txRepository) DeleteMovement(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM stock_movements WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMovementNotFound
	}
	return nil
}

func scanMovement(row pgx.Row) (Movement, error) {
	var m Movement
	err := row.Scan(&m.ID, &m.Kind, &m.ProductID, &m.Quantity, &m.Note, &m.UserID,
		&m.CreatedAt, &m.UpdatedAt, &m.ProductName, &m.ProductCode, &m.RecordedBy)
	if err != nil {
		return Movement{}, err
	}
	return m, nil
}

func scanMovements(rows pgx.Rows) ([]Movement, error) {
	var movements []Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}
