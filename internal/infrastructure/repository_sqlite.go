package infrastructure

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yourusername/ytdesk/internal/domain"
)

// SQLiteDownloadRepository implements DownloadRepository using SQLite
type SQLiteDownloadRepository struct {
	db *gorm.DB
}

var _ domain.DownloadRepository = (*SQLiteDownloadRepository)(nil)

// NewSQLiteDownloadRepository creates a new SQLite repository
func NewSQLiteDownloadRepository(dbPath string) (*SQLiteDownloadRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.DownloadRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteDownloadRepository{db: db}, nil
}

// Create creates a new record
func (r *SQLiteDownloadRepository) Create(record *domain.DownloadRecord) error {
	return r.db.Create(record).Error
}

// Update updates an existing record
func (r *SQLiteDownloadRepository) Update(record *domain.DownloadRecord) error {
	return r.db.Save(record).Error
}

// Delete deletes a record by ID
func (r *SQLiteDownloadRepository) Delete(id string) error {
	result := r.db.Delete(&domain.DownloadRecord{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return nil
}

// FindByID finds a record by ID
func (r *SQLiteDownloadRepository) FindByID(id string) (*domain.DownloadRecord, error) {
	var record domain.DownloadRecord
	err := r.db.First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByStatus finds records by status, newest first
func (r *SQLiteDownloadRepository) FindByStatus(status domain.SessionState) ([]*domain.DownloadRecord, error) {
	var records []*domain.DownloadRecord
	err := r.db.Where("status = ?", status).Order("created_at DESC").Find(&records).Error
	return records, err
}

// FindRecent returns the newest records first
func (r *SQLiteDownloadRepository) FindRecent(limit int) ([]*domain.DownloadRecord, error) {
	var records []*domain.DownloadRecord
	query := r.db.Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&records).Error
	return records, err
}

// GetStats returns download statistics
func (r *SQLiteDownloadRepository) GetStats() (*domain.DownloadStats, error) {
	stats := &domain.DownloadStats{}

	if err := r.db.Model(&domain.DownloadRecord{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	statusCounts := []struct {
		Status domain.SessionState
		Count  int64
	}{}

	if err := r.db.Model(&domain.DownloadRecord{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range statusCounts {
		switch sc.Status {
		case domain.SessionRunning:
			stats.Running = sc.Count
		case domain.SessionCompleted:
			stats.Completed = sc.Count
		case domain.SessionFailed:
			stats.Failed = sc.Count
		case domain.SessionCancelled:
			stats.Cancelled = sc.Count
		}
	}

	return stats, nil
}

// MarkInterrupted fails records left running by a previous process
func (r *SQLiteDownloadRepository) MarkInterrupted() (int64, error) {
	result := r.db.Model(&domain.DownloadRecord{}).
		Where("status = ?", domain.SessionRunning).
		Updates(map[string]interface{}{
			"status":        domain.SessionFailed,
			"error_message": "interrupted",
		})
	return result.RowsAffected, result.Error
}

// Close closes the database connection
func (r *SQLiteDownloadRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
