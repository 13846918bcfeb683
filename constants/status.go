package constants

// DocStatus is the canonical status for rows in documents.
type DocStatus string

// Stable values (store these exact strings in DB).
const (
	DocStatusQueued    DocStatus = "QUEUED"    // waiting for a worker
	DocStatusRunning   DocStatus = "RUNNING"   // extraction in progress
	DocStatusExtracted DocStatus = "EXTRACTED" // pipeline finished, bill stored
	DocStatusFailed    DocStatus = "FAILED"    // terminal failure
)
