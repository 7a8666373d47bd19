package domain

// DownloadRepository defines the interface for download history persistence
type DownloadRepository interface {
	// Create creates a new record
	Create(record *DownloadRecord) error

	// Update updates an existing record
	Update(record *DownloadRecord) error

	// Delete deletes a record by ID
	Delete(id string) error

	// FindByID finds a record by ID
	FindByID(id string) (*DownloadRecord, error)

	// FindByStatus finds records by status
	FindByStatus(status SessionState) ([]*DownloadRecord, error)

	// FindRecent returns the newest records first, at most limit (0 = all)
	FindRecent(limit int) ([]*DownloadRecord, error)

	// GetStats returns download statistics
	GetStats() (*DownloadStats, error)
}

// DownloadStats represents download statistics
type DownloadStats struct {
	Total     int64 `json:"total"`
	Running   int64 `json:"running"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Cancelled int64 `json:"cancelled"`
}
