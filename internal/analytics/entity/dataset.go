package entity

import "time"

// HistoryCapacity is the number of datasets kept per owner. Appending a
// sixth evicts the one with the smallest sequence number.
const HistoryCapacity = 5

// Dataset is one persisted upload snapshot. It is immutable once created
// and only ever removed by eviction or an explicit clear.
type Dataset struct {
	ID       int64
	Owner    string
	FileName string

	// UploadedAt is informational only. Eviction order is decided by Seq,
	// because wall clocks are neither unique nor monotonic across
	// concurrent uploads.
	UploadedAt time.Time

	// Seq is a per-owner monotonic insertion counter.
	Seq int64

	// BlobKey locates the stored raw CSV for this dataset.
	BlobKey string

	Summary Summary
}

// BlobRemovalEvent asks the cleanup consumer to delete a blob that no
// dataset references anymore.
type BlobRemovalEvent struct {
	EventID string
	Owner   string
	BlobKey string
}
