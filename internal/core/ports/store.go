package ports

import (
	"context"

	"go.trai.ch/incr/internal/core/domain"
)

// StoreRepository persists build generations.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type StoreRepository interface {
	// Load reads the generation saved in cacheDir. It never fails: missing or corrupt documents
	// are logged and defaulted, and an absent generation yields domain.NewStore().
	Load(ctx context.Context, cacheDir string, modules []string) *domain.Store

	// Save writes the generation. Any failure is returned.
	Save(ctx context.Context, store *domain.Store, cacheDir, logDir string, modules []string) error
}
