package inbound

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/analytics/entity"
	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/analytics/event"
	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/analytics/report"
	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/analytics/store"
	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/analytics/usecase"
	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/pkg/pkgrouter"
	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/pkg/pkgroutine"
	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/pkg/pkguid"
)

const testCSV = "Equipment ID,Equipment Name,Type,Capacity,Pressure,Temperature\n" +
	"EQ001,Main Reactor,Reactor,500,15.5,120\n" +
	"EQ002,Tank A,Storage Tank,1000,8.0,25\n" +
	"EQ003,Exchanger 1,Heat Exchanger,250,12.0,85\n" +
	"EQ004,Column B,Distillation Column,750,18.5,140\n" +
	"EQ005,Feed Pump,Pump,50,25.0,40\n"

type testClock struct{}

func (testClock) Now() time.Time {
	return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
}

type testSeq struct {
	n int64
}

func (s *testSeq) Generate() int64 {
	s.n++
	return s.n
}

func newTestRouter(t *testing.T) (http.Handler, *store.BlobStore) {
	t.Helper()

	dir := t.TempDir()
	blobs, err := store.NewBlobStore(filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatalf("NewBlobStore() error = %v", err)
	}

	storage, err := store.Open(filepath.Join(dir, "app.db"), blobs)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = storage.Close()
	})

	bus := event.NewBus(16)
	consumer := event.NewCleanupConsumer(bus, blobs, event.ConsumerConfig{Workers: 1})
	consumer.Start()
	t.Cleanup(func() {
		_ = consumer.Stop(context.Background())
	})

	runner := pkgroutine.NewManager(10)
	clock := testClock{}

	uc := usecase.New(usecase.Dependency{
		Store:  storage,
		Events: bus,
		Runner: runner,
		Clock:  clock,
		ID:     pkguid.NewUUID(),
		Seq:    &testSeq{},
		Renderers: map[string]usecase.ReportRenderer{
			"pdf":  report.NewPDF(clock),
			"xlsx": report.NewXLSX(),
		},
		RootCtx: context.Background(),
	})

	router := pkgrouter.NewRouter(pkguid.NewUUID())
	RegisterHTTPEndpoint(router, uc)

	return router, blobs
}

func uploadCSV(t *testing.T, router http.Handler, owner, fileName, csv string) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(csv)); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/upload/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if owner != "" {
		req.Header.Set(pkgrouter.HeaderUserID, owner)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func doRequest(t *testing.T, router http.Handler, method, path, owner string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if owner != "" {
		req.Header.Set(pkgrouter.HeaderUserID, owner)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestUploadAndSummary(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := uploadCSV(t, router, "u1", "equipment.csv", testCSV)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var uploaded UploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &uploaded); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if uploaded.RowCount != 5 || uploaded.SkippedRows != 0 {
		t.Errorf("upload response = %+v", uploaded)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/summary/", "u1")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var summary entity.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.TotalRows != 5 {
		t.Errorf("TotalRows = %d, want 5", summary.TotalRows)
	}
	if avg, ok := summary.Average(entity.FieldCapacity); !ok || avg != 510.0 {
		t.Errorf("capacity average = %v, %v", avg, ok)
	}
	if count, ok := summary.CountFor("Reactor"); !ok || count != 1 {
		t.Errorf("Reactor count = %v, %v", count, ok)
	}
}

func TestUpload_RequiresIdentity(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := uploadCSV(t, router, "", "equipment.csv", testCSV)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Error != "authentication required" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestUpload_MissingColumns(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := uploadCSV(t, router, "u1", "bad.csv", "Equipment ID,Capacity\nEQ001,500\n")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Error != "missing required columns" {
		t.Errorf("error = %q", body.Error)
	}
	if body.Details["missing_columns"] == "" {
		t.Errorf("details = %v", body.Details)
	}
}

func TestSummary_NoDataset(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/summary/", "u1")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHistory_BoundedPerOwner(t *testing.T) {
	router, _ := newTestRouter(t)

	for i := 0; i < entity.HistoryCapacity+2; i++ {
		rec := uploadCSV(t, router, "u1", fmt.Sprintf("upload-%d.csv", i), testCSV)
		if rec.Code != http.StatusCreated {
			t.Fatalf("upload %d status = %d", i, rec.Code)
		}
	}

	rec := doRequest(t, router, http.MethodGet, "/api/history/", "u1")
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d", rec.Code)
	}

	var history HistoryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history.Datasets) != entity.HistoryCapacity {
		t.Fatalf("history length = %d, want %d", len(history.Datasets), entity.HistoryCapacity)
	}

	// Most recent first; the first two uploads were evicted.
	if history.Datasets[0].FileName != fmt.Sprintf("upload-%d.csv", entity.HistoryCapacity+1) {
		t.Errorf("newest = %q", history.Datasets[0].FileName)
	}
	if history.Datasets[len(history.Datasets)-1].FileName != "upload-2.csv" {
		t.Errorf("oldest = %q", history.Datasets[len(history.Datasets)-1].FileName)
	}
}

func TestClearHistory(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := uploadCSV(t, router, "u1", "equipment.csv", testCSV)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodDelete, "/api/history/", "u1")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("clear status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodGet, "/api/history/", "u1")
	var history HistoryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history.Datasets) != 0 {
		t.Errorf("history after clear = %d entries", len(history.Datasets))
	}
}

func TestHistory_OwnersAreIsolated(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := uploadCSV(t, router, "u1", "equipment.csv", testCSV)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/history/", "u2")
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d", rec.Code)
	}

	var history HistoryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history.Datasets) != 0 {
		t.Errorf("u2 sees %d of u1's datasets", len(history.Datasets))
	}
}

func TestReportDownload(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := uploadCSV(t, router, "u1", "equipment.csv", testCSV)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/report/", "u1")
	if rec.Code != http.StatusOK {
		t.Fatalf("report status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/pdf" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="summary-report.pdf"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Error("report body is not a pdf")
	}

	rec = doRequest(t, router, http.MethodGet, "/api/report/?format=xlsx", "u1")
	if rec.Code != http.StatusOK {
		t.Fatalf("xlsx report status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("xlsx Content-Type = %q", got)
	}
}

func TestReport_UnsupportedFormat(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := uploadCSV(t, router, "u1", "equipment.csv", testCSV)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/report/?format=docx", "u1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
