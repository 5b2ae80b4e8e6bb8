// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/Veraticus/showroom/internal/model"
)

// KeyValueStore is durable client storage for small opaque values.
// It plays the role browser localStorage plays for a web front end.
type KeyValueStore interface {
	GetValue(ctx context.Context, key string) (string, error)
	SetValue(ctx context.Context, key, value string) error
	DeleteValues(ctx context.Context, keys ...string) error
}

// UploadLog records the outcome of upload attempts.
type UploadLog interface {
	RecordUpload(ctx context.Context, record *model.UploadRecord) error
	RecentUploads(ctx context.Context, limit int) ([]model.UploadRecord, error)
}

// LatestDealStore persists the pointer to the most recently processed deal.
// LatestDeal returns nil without error when nothing has been recorded.
type LatestDealStore interface {
	LatestDeal(ctx context.Context) (*model.LatestDeal, error)
	SaveLatestDeal(ctx context.Context, deal *model.LatestDeal) error
}

// Storage is the complete local persistence layer.
type Storage interface {
	KeyValueStore
	UploadLog
	LatestDealStore
	Migrate(ctx context.Context) error
	Close() error
}
