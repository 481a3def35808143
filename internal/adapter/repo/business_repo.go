package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studio/internal/domain"
)

// BusinessRepositoryPG implements domain.BusinessReader.
type BusinessRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewBusinessRepository creates a business read repository backed by PostgreSQL.
func NewBusinessRepository(pool *pgxpool.Pool) *BusinessRepositoryPG {
	return &BusinessRepositoryPG{pool: pool}
}

// LatestByUser fetches the most recently updated business for a user.
func (r *BusinessRepositoryPG) LatestByUser(ctx context.Context, userID string) (*domain.Business, error) {
	query := `
SELECT id, user_id, name, website_url, COALESCE(screenshot_url, ''), created_at, updated_at
FROM businesses
WHERE user_id = $1
ORDER BY updated_at DESC
LIMIT 1;
`
	return r.scanOne(r.pool.QueryRow(ctx, query, userID))
}

// GetByID fetches a business by its identifier.
func (r *BusinessRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Business, error) {
	query := `
SELECT id, user_id, name, website_url, COALESCE(screenshot_url, ''), created_at, updated_at
FROM businesses
WHERE id = $1;
`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *BusinessRepositoryPG) scanOne(row pgx.Row) (*domain.Business, error) {
	var b domain.Business
	if err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.Name,
		&b.WebsiteURL,
		&b.ScreenshotURL,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}
