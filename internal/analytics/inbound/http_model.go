package inbound

import (
	"net/http"
	"time"

	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/analytics/entity"
)

type UploadResponse struct {
	Message     string         `json:"message"`
	RowCount    int            `json:"row_count"`
	SkippedRows int            `json:"skipped_rows"`
	Summary     entity.Summary `json:"summary"`
}

func (UploadResponse) StatusCode() int {
	return http.StatusCreated
}

type HistoryItem struct {
	FileName   string         `json:"file_name"`
	UploadedAt time.Time      `json:"uploaded_at"`
	Summary    entity.Summary `json:"summary"`
}

type HistoryResponse struct {
	Datasets []HistoryItem `json:"datasets"`
}
