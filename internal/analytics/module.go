// Package analytics wires the CSV analytics module: ingest, aggregation,
// bounded per-owner history, and report generation.
package analytics

import (
	"context"
	"time"

	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/analytics/event"
	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/analytics/inbound"
	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/analytics/report"
	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/analytics/store"
	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/analytics/usecase"
	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/pkg/pkgconfig"
	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/pkg/pkgrouter"
	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/pkg/pkgroutine"
	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/pkg/pkguid"
)

type Dependency struct {
	Config    pkgconfig.Config
	Goroutine *pkgroutine.Manager
	Router    *pkgrouter.Router
	Context   context.Context
	ID        pkguid.StringID
	Seq       pkguid.NumberID
}

// New builds the module and returns its closer.
func New(dep Dependency) (func(context.Context) error, error) {
	blobs, err := store.NewBlobStore(dep.Config.GetString("storage.blob_dir"))
	if err != nil {
		return nil, err
	}

	storage, err := store.Open(dep.Config.GetString("storage.sqlite_path"), blobs)
	if err != nil {
		return nil, err
	}

	bus := event.NewBus(512)
	consumer := event.NewCleanupConsumer(bus, blobs, event.ConsumerConfig{
		Workers:     int(dep.Config.GetInt("cleanup.workers")),
		MaxRetries:  int(dep.Config.GetInt("cleanup.max_retries")),
		BaseBackoff: 200 * time.Millisecond,
	})
	consumer.Start()

	if dep.ID == nil {
		dep.ID = pkguid.NewUUID()
	}
	if dep.Seq == nil {
		sf, err := pkguid.NewSnowflake()
		if err != nil {
			return nil, err
		}
		dep.Seq = sf
	}

	clock := realClock{}

	uc := usecase.New(usecase.Dependency{
		Store:  storage,
		Events: bus,
		Runner: dep.Goroutine,
		Clock:  clock,
		ID:     dep.ID,
		Seq:    dep.Seq,
		Renderers: map[string]usecase.ReportRenderer{
			"pdf":  report.NewPDF(clock),
			"xlsx": report.NewXLSX(),
		},
		RootCtx: dep.Context,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	closer := func(ctx context.Context) error {
		if err := consumer.Stop(ctx); err != nil {
			return err
		}
		return storage.Close()
	}

	return closer, nil
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}
