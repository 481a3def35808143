package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studio/internal/domain"
)

// ProductRepositoryPG implements domain.ProductReader.
type ProductRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewProductRepository creates a product read repository backed by PostgreSQL.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepositoryPG {
	return &ProductRepositoryPG{pool: pool}
}

// LatestByUser fetches the most recent product across the user's businesses.
func (r *ProductRepositoryPG) LatestByUser(ctx context.Context, userID string) (*domain.Product, error) {
	query := `
SELECT p.id, p.business_id, p.name, COALESCE(p.description, ''), COALESCE(p.image_url, ''), p.created_at
FROM products p
JOIN businesses b ON b.id = p.business_id
WHERE b.user_id = $1
ORDER BY p.created_at DESC
LIMIT 1;
`
	var p domain.Product
	if err := r.pool.QueryRow(ctx, query, userID).Scan(
		&p.ID,
		&p.BusinessID,
		&p.Name,
		&p.Description,
		&p.ImageURL,
		&p.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
