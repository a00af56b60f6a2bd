package ports

import "go.trai.ch/incr/internal/core/domain"

// ConfigLoader defines the interface for loading the project configuration.
//
//go:generate go run go.uber.org/mock/mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load finds the project file starting at cwd and returns the resolved configuration.
	Load(cwd string) (*domain.Config, error)
}
