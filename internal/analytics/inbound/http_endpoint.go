package inbound

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/pkg/pkgerror"
	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/pkg/pkgrouter"
)

type HTTPEndpoint struct {
	uc uc
}

func (h *HTTPEndpoint) Upload(ctx context.Context, r *http.Request) (any, error) {
	reader, fileName, cleanup, err := extractCSVFile(r)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	result, err := h.uc.Upload(ctx, pkgrouter.Owner(ctx), reader, fileName)
	if err != nil {
		return nil, err
	}

	return UploadResponse{
		Message:     "dataset uploaded",
		RowCount:    result.RowCount,
		SkippedRows: result.SkippedRows,
		Summary:     result.Summary,
	}, nil
}

func (h *HTTPEndpoint) Summary(ctx context.Context, r *http.Request) (any, error) {
	summary, err := h.uc.Summary(ctx, pkgrouter.Owner(ctx))
	if err != nil {
		return nil, err
	}

	return summary, nil
}

func (h *HTTPEndpoint) History(ctx context.Context, r *http.Request) (any, error) {
	datasets, err := h.uc.History(ctx, pkgrouter.Owner(ctx))
	if err != nil {
		return nil, err
	}

	items := make([]HistoryItem, 0, len(datasets))
	for _, dataset := range datasets {
		items = append(items, HistoryItem{
			FileName:   dataset.FileName,
			UploadedAt: dataset.UploadedAt.UTC(),
			Summary:    dataset.Summary,
		})
	}

	return HistoryResponse{Datasets: items}, nil
}

func (h *HTTPEndpoint) ClearHistory(ctx context.Context, r *http.Request) (any, error) {
	if err := h.uc.Clear(ctx, pkgrouter.Owner(ctx)); err != nil {
		return nil, err
	}

	return nil, nil
}

func (h *HTTPEndpoint) Report(ctx context.Context, r *http.Request) (any, error) {
	format := strings.TrimSpace(r.URL.Query().Get("format"))

	report, err := h.uc.Report(ctx, pkgrouter.Owner(ctx), format)
	if err != nil {
		return nil, err
	}

	return pkgrouter.Raw{
		ContentType: report.ContentType,
		Filename:    report.FileName,
		Body:        report.Body,
	}, nil
}

// extractCSVFile returns the upload stream plus the client's file name. A
// multipart "file" part is preferred; a raw body is accepted as a fallback
// for curl-style uploads.
func extractCSVFile(r *http.Request) (io.Reader, string, func(), error) {
	contentType := r.Header.Get("Content-Type")
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil && strings.EqualFold(mediaType, "multipart/form-data") {
			return extractMultipartFile(r)
		}
	}

	if r.Body == nil {
		return nil, "", func() {}, pkgerror.NewValidation("a csv file is required", nil)
	}

	return r.Body, "", func() {}, nil
}

func extractMultipartFile(r *http.Request) (io.Reader, string, func(), error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, "", func() {}, pkgerror.NewInvalidFormat("unreadable multipart body")
	}

	for {
		part, err := reader.NextPart()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, "", func() {}, pkgerror.NewValidation("file part is required", nil)
			}
			return nil, "", func() {}, pkgerror.NewInvalidFormat("unreadable multipart body")
		}

		if part.FormName() == "file" {
			return part, part.FileName(), func() { _ = part.Close() }, nil
		}
		_ = part.Close()
	}
}
