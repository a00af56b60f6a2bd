package app

import (
	"context"
	"fmt"
)

// Clean removes the cache, output and log directories of the project.
func (a *App) Clean(ctx context.Context) ([]string, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}

	dirs := []string{cfg.CacheDir, cfg.OutputDir, cfg.LogDir}
	for _, dir := range dirs {
		a.logger.Info(fmt.Sprintf("removing %s...", dir))
	}
	removed, err := a.remover.RemoveAll(ctx, dirs)
	for _, dir := range removed {
		a.logger.Info(fmt.Sprintf("removed %s", dir))
	}
	return removed, err
}
