package domain

import "time"

// Attachment is metadata for a file stored out-of-band. The record is only
// written after the client confirms the bytes landed at StoragePath; the
// signed-URL issuance that produced the path is a separate, earlier call.
type Attachment struct {
	ID          string
	MessageID   string
	FileName    string
	FileType    string
	FileSize    int64
	StoragePath string
	CreatedAt   time.Time
}

// AnalyticsSummary aggregates ticket counts for the admin dashboard.
type AnalyticsSummary struct {
	TotalTickets         int64
	PendingTickets       int64
	ResolvedTickets      int64
	ClosedTickets        int64
	AvgResolutionSeconds *float64
}
