package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/analytics/entity"
	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/pkg/pkgerror"
	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/pkg/pkguid"
)

// maxUploadBytes bounds a single CSV upload. Datasets here are small batch
// files, not bulk imports.
const maxUploadBytes = 10 << 20

// Store is the owner-scoped bounded history of dataset snapshots.
//
// Append persists the dataset and its raw blob as one atomic unit and
// returns the datasets it evicted to stay within capacity. Clear removes
// everything for the owner, blobs first.
type Store interface {
	Append(ctx context.Context, dataset entity.Dataset, blob []byte) ([]entity.Dataset, error)
	List(ctx context.Context, owner string) ([]entity.Dataset, error)
	Current(ctx context.Context, owner string) (entity.Dataset, error)
	Clear(ctx context.Context, owner string) error
}

// EventPublisher hands evicted blob keys to the cleanup consumer.
type EventPublisher interface {
	Publish(ctx context.Context, event entity.BlobRemovalEvent) error
}

// Runner schedules background work off the request path.
type Runner interface {
	Go(ctx context.Context, f func(ctx context.Context) error)
}

// Clock supplies the current time; injectable for tests.
type Clock interface {
	Now() time.Time
}

// ReportRenderer renders one document format from a dataset's Summary.
type ReportRenderer interface {
	Render(ctx context.Context, dataset entity.Dataset) (Report, error)
}

type Dependency struct {
	Store     Store
	Events    EventPublisher
	Runner    Runner
	Clock     Clock
	ID        pkguid.StringID
	Seq       pkguid.NumberID
	Renderers map[string]ReportRenderer
	RootCtx   context.Context
}

// Usecase orchestrates ingest, aggregation, history and reports. It is the
// only type the HTTP layer talks to.
type Usecase struct {
	store     Store
	events    EventPublisher
	runner    Runner
	clock     Clock
	id        pkguid.StringID
	seq       pkguid.NumberID
	renderers map[string]ReportRenderer
	rootCtx   context.Context
	locks     ownerLocks
}

func New(dep Dependency) *Usecase {
	root := dep.RootCtx
	if root == nil {
		root = context.Background()
	}

	clock := dep.Clock
	if clock == nil {
		clock = realClock{}
	}

	return &Usecase{
		store:     dep.Store,
		events:    dep.Events,
		runner:    dep.Runner,
		clock:     clock,
		id:        dep.ID,
		seq:       dep.Seq,
		renderers: dep.Renderers,
		rootCtx:   root,
	}
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// Upload runs the whole pipeline: ingest, aggregate, persist, evict. It
// either fully commits or fully fails; a reader can never observe a partial
// dataset.
func (u *Usecase) Upload(ctx context.Context, owner string, r io.Reader, fileName string) (UploadResult, error) {
	if u.store == nil || u.id == nil || u.seq == nil {
		return UploadResult{}, pkgerror.NewServer(errors.New("missing dependency"))
	}
	if owner == "" {
		return UploadResult{}, pkgerror.NewUnauthorized("owner identity is required")
	}

	data, err := io.ReadAll(io.LimitReader(r, maxUploadBytes+1))
	if err != nil {
		return UploadResult{}, pkgerror.NewServer(err)
	}
	if len(data) > maxUploadBytes {
		return UploadResult{}, pkgerror.NewValidation("file exceeds the upload size limit", nil)
	}

	parsed, err := ParseCSV(bytes.NewReader(data))
	if err != nil {
		return UploadResult{}, err
	}

	summary := Summarize(parsed.Records)

	unlock := u.locks.lock(owner)
	defer unlock()

	dataset := entity.Dataset{
		ID:         u.seq.Generate(),
		Owner:      owner,
		FileName:   sanitizeFileName(fileName),
		UploadedAt: u.clock.Now().UTC(),
		BlobKey:    u.id.Generate() + ".csv",
		Summary:    summary,
	}

	evicted, err := u.store.Append(ctx, dataset, data)
	if err != nil {
		return UploadResult{}, normalizeErr(err)
	}

	u.scheduleCleanup(owner, evicted)

	slog.InfoContext(ctx, "dataset stored",
		"owner", owner,
		"file_name", dataset.FileName,
		"rows", summary.TotalRows,
		"skipped", len(parsed.RowErrors),
		"evicted", len(evicted))

	return UploadResult{
		Summary:     summary,
		RowCount:    summary.TotalRows,
		SkippedRows: len(parsed.RowErrors),
		FileName:    dataset.FileName,
	}, nil
}

// Summary returns the aggregate of the owner's most recent dataset.
func (u *Usecase) Summary(ctx context.Context, owner string) (entity.Summary, error) {
	dataset, err := u.store.Current(ctx, owner)
	if err != nil {
		return entity.Summary{}, mapStoreErr(err)
	}

	return dataset.Summary, nil
}

// History lists the owner's datasets, most recent first.
func (u *Usecase) History(ctx context.Context, owner string) ([]entity.Dataset, error) {
	datasets, err := u.store.List(ctx, owner)
	if err != nil {
		return nil, normalizeErr(err)
	}

	return datasets, nil
}

// Clear removes every dataset and blob the owner has.
func (u *Usecase) Clear(ctx context.Context, owner string) error {
	if owner == "" {
		return pkgerror.NewUnauthorized("owner identity is required")
	}

	unlock := u.locks.lock(owner)
	defer unlock()

	if err := u.store.Clear(ctx, owner); err != nil {
		return normalizeErr(err)
	}

	slog.InfoContext(ctx, "history cleared", "owner", owner)

	return nil
}

// Report renders the owner's current Summary in the requested format
// ("pdf" when empty).
func (u *Usecase) Report(ctx context.Context, owner, format string) (Report, error) {
	if format == "" {
		format = "pdf"
	}

	renderer, ok := u.renderers[format]
	if !ok {
		return Report{}, pkgerror.NewValidation("unsupported report format", map[string]string{
			"format": format,
		})
	}

	dataset, err := u.store.Current(ctx, owner)
	if err != nil {
		return Report{}, mapStoreErr(err)
	}

	report, err := renderer.Render(ctx, dataset)
	if err != nil {
		return Report{}, normalizeErr(err)
	}

	return report, nil
}

// scheduleCleanup hands evicted blobs to the cleanup consumer without
// blocking the request: a full event bus must not stall an upload.
func (u *Usecase) scheduleCleanup(owner string, evicted []entity.Dataset) {
	if len(evicted) == 0 || u.events == nil || u.runner == nil {
		return
	}

	events := make([]entity.BlobRemovalEvent, 0, len(evicted))
	for _, dataset := range evicted {
		events = append(events, entity.BlobRemovalEvent{
			EventID: u.id.Generate(),
			Owner:   owner,
			BlobKey: dataset.BlobKey,
		})
	}

	u.runner.Go(u.rootCtx, func(ctx context.Context) error {
		for _, event := range events {
			if err := u.events.Publish(ctx, event); err != nil {
				slog.WarnContext(ctx, "failed to publish blob removal",
					"owner", event.Owner, "blob_key", event.BlobKey, "error", err)
			}
		}
		return nil
	})
}

// ownerLocks serializes writers per owner so two tabs uploading at once
// cannot race the capacity invariant. Readers never take these locks.
type ownerLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *ownerLocks) lock(owner string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[owner]
	if !ok {
		m = &sync.Mutex{}
		l.locks[owner] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// sanitizeFileName reduces any client-supplied path to its basename. Both
// separator styles are stripped server-side; clients are not trusted to do
// it.
func sanitizeFileName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "upload.csv"
	}
	return name
}

func mapStoreErr(err error) error {
	if errors.Is(err, pkgerror.ErrNotFound) {
		return pkgerror.NewNotFound("no dataset uploaded yet")
	}
	return normalizeErr(err)
}

func normalizeErr(err error) error {
	var perr *pkgerror.Error
	if errors.As(err, &perr) {
		return perr
	}
	return pkgerror.NewServer(err)
}
