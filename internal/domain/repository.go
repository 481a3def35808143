package domain

import "context"

// BusinessReader exposes the business read collaborator. Implemented by the
// pgx repository; the poller uses it for the screenshot sub-poll and the
// orchestrator for dispatch context.
type BusinessReader interface {
	LatestByUser(ctx context.Context, userID string) (*Business, error)
	GetByID(ctx context.Context, id string) (*Business, error)
}

// ProductReader exposes the product read collaborator.
type ProductReader interface {
	LatestByUser(ctx context.Context, userID string) (*Product, error)
}

// JobReader fetches the current state of a long-running job from the
// collaborator that owns it.
type JobReader interface {
	GetJob(ctx context.Context, jobID string) (*Job, error)
}

// Uploader is the storage collaborator: it accepts file bytes plus a logical
// folder hint and returns a public URL.
type Uploader interface {
	Upload(ctx context.Context, folder, filename string, data []byte) (string, error)
}
