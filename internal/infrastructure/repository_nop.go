package infrastructure

import (
	"fmt"

	"github.com/yourusername/ytdesk/internal/domain"
)

// NopDownloadRepository stands in for the history database when history is disabled
type NopDownloadRepository struct{}

var _ domain.DownloadRepository = NopDownloadRepository{}

func (NopDownloadRepository) Create(*domain.DownloadRecord) error { return nil }
func (NopDownloadRepository) Update(*domain.DownloadRecord) error { return nil }

func (NopDownloadRepository) Delete(id string) error {
	return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
}

func (NopDownloadRepository) FindByID(id string) (*domain.DownloadRecord, error) {
	return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
}

func (NopDownloadRepository) FindByStatus(domain.SessionState) ([]*domain.DownloadRecord, error) {
	return []*domain.DownloadRecord{}, nil
}

func (NopDownloadRepository) FindRecent(int) ([]*domain.DownloadRecord, error) {
	return []*domain.DownloadRecord{}, nil
}

func (NopDownloadRepository) GetStats() (*domain.DownloadStats, error) {
	return &domain.DownloadStats{}, nil
}
