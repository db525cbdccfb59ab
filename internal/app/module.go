package app

import (
	"context"
	"log/slog"
	"os"

	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/analytics"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.analytics.enabled") {
		closer, err := analytics.New(analytics.Dependency{
			Config:    a.config,
			Router:    a.router,
			Goroutine: a.goroutine,
			Context:   a.ctx,
			ID:        a.uuid,
			Seq:       a.snowflake,
		})
		if err != nil {
			slog.Error("failed to init module analytics", "error", err)
			os.Exit(1)
		}
		if closer != nil {
			if a.closerFn == nil {
				a.closerFn = map[string]func(context.Context) error{}
			}
			a.closerFn["Analytics"] = closer
		}
	}
}
