package products

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bodega-erp/bodega/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error)
	Get(ctx context.Context, id int64) (Product, error)
	GetByCode(ctx context.Context, code string) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, id int64, product Product) error
	Delete(ctx context.Context, id int64) error
	CountAll(ctx context.Context) (int, error)
	ListBelowMinimum(ctx context.Context) ([]Product, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const productSelect = `
	SELECT p.id, p.code, p.name, p.description, p.category_id, p.unit_id,
	       p.unit_price, p.stock, p.min_stock, COALESCE(p.image_path, ''),
	       p.created_at, p.updated_at,
	       c.name, u.name, u.abbreviation
	FROM products p
	JOIN categories c ON c.id = p.category_id
	JOIN units u ON u.id = p.unit_id`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	filters = filters.Normalize()

	query := productSelect + ` WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	countQuery := `SELECT COUNT(*) FROM products p WHERE 1=1`
	countArgs := []interface{}{}

	if filters.Search != "" {
		argCount++
		clause := ` AND (p.name ILIKE $` + strconv.Itoa(argCount) + ` OR p.code ILIKE $` + strconv.Itoa(argCount) + `)`
		query += clause
		args = append(args, "%"+filters.Search+"%")
		countArgs = append(countArgs, "%"+filters.Search+"%")
		countQuery += ` AND (p.name ILIKE $` + strconv.Itoa(len(countArgs)) + ` OR p.code ILIKE $` + strconv.Itoa(len(countArgs)) + `)`
	}
	if filters.CategoryID != nil {
		argCount++
		query += ` AND p.category_id = $` + strconv.Itoa(argCount)
		args = append(args, *filters.CategoryID)
		countArgs = append(countArgs, *filters.CategoryID)
		countQuery += ` AND p.category_id = $` + strconv.Itoa(len(countArgs))
	}
	if filters.LowStock {
		query += ` AND p.min_stock > 0 AND p.stock <= p.min_stock`
		countQuery += ` AND p.min_stock > 0 AND p.stock <= p.min_stock`
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY p.name ASC`

	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, filters.Limit)

	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, filters.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products, err := scanProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	return r.scanOne(r.pool.QueryRow(ctx, productSelect+` WHERE p.id = $1`, id))
}

func (r *repository) GetByCode(ctx context.Context, code string) (Product, error) {
	return r.scanOne(r.pool.QueryRow(ctx, productSelect+` WHERE p.code = $1`, code))
}

func (r *repository) Create(ctx context.Context, product Product) (Product, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO products (code, name, description, category_id, unit_id, unit_price, stock, min_stock, image_path, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, NULLIF($8, ''), NOW(), NOW())
		RETURNING id`,
		product.Code, product.Name, product.Description, product.CategoryID,
		product.UnitID, product.UnitPrice, product.MinStock, product.ImagePath).Scan(&id)
	if err != nil {
		return Product{}, shared.MapPgError(err)
	}
	return r.Get(ctx, id)
}

// Update never touches the stock column. Stock changes flow through
// inventory movements exclusively.
func (r *repository) Update(ctx context.Context, id int64, product Product) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products
		SET code = $2, name = $3, description = $4, category_id = $5, unit_id = $6,
		    unit_price = $7, min_stock = $8,
		    image_path = COALESCE(NULLIF($9, ''), image_path),
		    updated_at = NOW()
		WHERE id = $1`,
		id, product.Code, product.Name, product.Description, product.CategoryID,
		product.UnitID, product.UnitPrice, product.MinStock, product.ImagePath)
	if err != nil {
		return shared.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return shared.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) CountAll(ctx context.Context) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&total)
	return total, err
}

func (r *repository) ListBelowMinimum(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, productSelect+` WHERE p.min_stock > 0 AND p.stock <= p.min_stock ORDER BY p.name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *repository) scanOne(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.CategoryID, &p.UnitID,
		&p.UnitPrice, &p.Stock, &p.MinStock, &p.ImagePath,
		&p.CreatedAt, &p.UpdatedAt,
		&p.CategoryName, &p.UnitName, &p.UnitAbbreviation)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func scanProducts(rows pgx.Rows) ([]Product, error) {
	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.CategoryID, &p.UnitID,
			&p.UnitPrice, &p.Stock, &p.MinStock, &p.ImagePath,
			&p.CreatedAt, &p.UpdatedAt,
			&p.CategoryName, &p.UnitName, &p.UnitAbbreviation); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
