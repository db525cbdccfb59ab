package usecase

import "github.com/Esha-Parvin/chemical-equipment-visualizer/internal/analytics/entity"

// UploadResult is what a successful upload reports back to the caller:
// the new Summary plus how many rows were skipped, so the edge can surface
// "N rows imported, M skipped".
type UploadResult struct {
	Summary     entity.Summary
	RowCount    int
	SkippedRows int
	FileName    string
}

// Report is a rendered document ready to stream to the client.
type Report struct {
	ContentType string
	FileName    string
	Body        []byte
}
