package inbound

import (
	"context"
	"io"

	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/analytics/entity"
	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/analytics/usecase"
	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/pkg/pkgrouter"
)

type uc interface {
	Upload(ctx context.Context, owner string, r io.Reader, fileName string) (usecase.UploadResult, error)
	Summary(ctx context.Context, owner string) (entity.Summary, error)
	History(ctx context.Context, owner string) ([]entity.Dataset, error)
	Clear(ctx context.Context, owner string) error
	Report(ctx context.Context, owner, format string) (usecase.Report, error)
}

func RegisterHTTPEndpoint(r *pkgrouter.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.POST("/api/upload/", end.Upload, pkgrouter.RequireIdentity)
	r.GET("/api/summary/", end.Summary, pkgrouter.RequireIdentity)
	r.GET("/api/history/", end.History, pkgrouter.RequireIdentity)
	r.DELETE("/api/history/", end.ClearHistory, pkgrouter.RequireIdentity)
	r.GET("/api/report/", end.Report, pkgrouter.RequireIdentity) // ?format=pdf|xlsx
}
