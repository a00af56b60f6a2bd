package ports

import (
	"context"

	"go.trai.ch/incr/internal/core/domain"
)

// Processor turns one changed source file into its outputs. Compilers live behind this interface.
//
//go:generate go run go.uber.org/mock/mockgen -source=processor.go -destination=mocks/mock_processor.go -package=mocks
type Processor interface {
	// Process compiles the file and reports the outputs written and the files it imports.
	Process(ctx context.Context, cfg *domain.Config, file domain.SourceFile) (domain.ProcessResult, error)
}
