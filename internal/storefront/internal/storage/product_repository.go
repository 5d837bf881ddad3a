package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"storefront_api/internal/storefront/internal/models"
)

const productColumns = `id, name, description, features, price, stock, track_inventory, status,
	images, category_ids, tag_ids, created_at, updated_at`

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var p models.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Features, &p.Price, &p.Stock, &p.TrackInventory, &p.Status,
		pq.Array(&p.Images), pq.Array(&p.CategoryIDs), pq.Array(&p.TagIDs), &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProduct returns (nil, nil) when the product does not exist.
func (r *ProductRepository) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM storefront.products WHERE id = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// CompareAndSwapStock пишет next только если в строке всё ещё expected.
func (r *ProductRepository) CompareAndSwapStock(ctx context.Context, id int64, expected, next int) (bool, error) {
	query := `UPDATE storefront.products SET stock = $3, updated_at = now()
			  WHERE id = $1 AND stock = $2 AND track_inventory`

	res, err := r.db.ExecContext(ctx, query, id, expected, next)
	if err != nil {
		return false, fmt.Errorf("failed to swap stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected == 1, nil
}

func (r *ProductRepository) ListActiveProducts(ctx context.Context, limit int) ([]*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM storefront.products
			  WHERE status = 'active' AND (stock > 0 OR NOT track_inventory)
			  ORDER BY created_at DESC LIMIT $1`
	return r.queryProducts(ctx, query, limit)
}

func (r *ProductRepository) ListProducts(ctx context.Context) ([]*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM storefront.products ORDER BY created_at DESC`
	return r.queryProducts(ctx, query)
}

func (r *ProductRepository) queryProducts(ctx context.Context, query string, args ...interface{}) ([]*models.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]*models.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}

func (r *ProductRepository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	query := `INSERT INTO storefront.products
			  (name, description, features, price, stock, track_inventory, status, images, category_ids, tag_ids)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  RETURNING id, created_at, updated_at`

	created := *product
	err := r.db.QueryRowContext(ctx, query,
		product.Name, product.Description, product.Features, product.Price, product.Stock,
		product.TrackInventory, product.Status,
		pq.Array(product.Images), pq.Array(product.CategoryIDs), pq.Array(product.TagIDs),
	).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert product: %w", err)
	}
	return &created, nil
}

// UpdateProductDetails never writes stock, so it cannot clobber a
// concurrent decrement.
func (r *ProductRepository) UpdateProductDetails(ctx context.Context, product *models.Product) (bool, error) {
	query := `UPDATE storefront.products
			  SET name = $2, description = $3, features = $4, price = $5, track_inventory = $6,
			      status = $7, images = $8, category_ids = $9, tag_ids = $10, updated_at = now()
			  WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		product.ID, product.Name, product.Description, product.Features, product.Price,
		product.TrackInventory, product.Status,
		pq.Array(product.Images), pq.Array(product.CategoryIDs), pq.Array(product.TagIDs),
	)
	if err != nil {
		return false, fmt.Errorf("failed to update product: %w", err)
	}
	return affectedOne(res)
}

func (r *ProductRepository) SetStock(ctx context.Context, id int64, stock int) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE storefront.products SET stock = $2, updated_at = now() WHERE id = $1`, id, stock)
	if err != nil {
		return false, fmt.Errorf("failed to set stock: %w", err)
	}
	return affectedOne(res)
}

func (r *ProductRepository) DeleteProduct(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM storefront.products WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete product: %w", err)
	}
	return affectedOne(res)
}

func affectedOne(res sql.Result) (bool, error) {
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}
