package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"signature-form-api/models"

	"gorm.io/gorm"
)

// ErrSubmissionNotFound is returned when no row has the requested id.
var ErrSubmissionNotFound = errors.New("submission not found")

const (
	defaultPerPage = 50
	maxPerPage     = 200
)

var summaryColumns = []string{
	"id", "full_name", "email", "company", "signature_method",
	"signature_file_png", "signature_file_webp", "signature_file_svg", "submitted_at",
}

// SubmissionService reads and writes form_submissions rows.
type SubmissionService struct {
	db    *gorm.DB
	files *FileStore
}

func NewSubmissionService(db *gorm.DB, files *FileStore) *SubmissionService {
	return &SubmissionService{db: db, files: files}
}

// Insert creates the row and returns its assigned id.
func (s *SubmissionService) Insert(ctx context.Context, submission *models.Submission) (uint, error) {
	if err := s.db.WithContext(ctx).Create(submission).Error; err != nil {
		return 0, fmt.Errorf("insert submission: %w", err)
	}
	return submission.ID, nil
}

// UpdateFileReferences points the file columns of row id at files. Only the
// formats present in files are touched; an empty map issues no query.
func (s *SubmissionService) UpdateFileReferences(ctx context.Context, id uint, files map[models.SignatureFormat]string) error {
	if len(files) == 0 {
		return nil
	}
	updates := make(map[string]interface{}, len(files))
	for format, name := range files {
		updates[format.Column()] = name
	}
	err := s.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("update file references for submission %d: %w", id, err)
	}
	return nil
}

// Get loads one submission.
func (s *SubmissionService) Get(ctx context.Context, id uint) (*models.Submission, error) {
	var submission models.Submission
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&submission).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load submission %d: %w", id, err)
	}
	return &submission, nil
}

// List returns one page of submissions, newest first, and the total row count.
func (s *SubmissionService) List(ctx context.Context, page, perPage int) ([]models.SubmissionSummary, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Submission{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}

	items := []models.SubmissionSummary{}
	err := s.db.WithContext(ctx).
		Model(&models.Submission{}).
		Select(summaryColumns).
		Order("submitted_at DESC, id DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}
	return items, total, nil
}

// SignatureFilePaths maps each format of submission id to the absolute path
// of its file. Formats whose file is missing on disk are left out.
func (s *SubmissionService) SignatureFilePaths(ctx context.Context, id uint) (map[models.SignatureFormat]string, error) {
	submission, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	paths := make(map[models.SignatureFormat]string)
	for format, name := range submission.SignatureFiles() {
		if !s.files.Exists(name) {
			continue
		}
		path := s.files.Path(name)
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		paths[format] = path
	}
	return paths, nil
}

// DeleteSignatureFiles removes the files of submission id from disk, clears
// the columns of the removed files and returns how many were removed.
// An unknown id removes nothing.
func (s *SubmissionService) DeleteSignatureFiles(ctx context.Context, id uint) (int, error) {
	submission, err := s.Get(ctx, id)
	if errors.Is(err, ErrSubmissionNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	cleared := make(map[string]interface{})
	var errs []error
	for format, name := range submission.SignatureFiles() {
		if !s.files.Exists(name) {
			continue
		}
		if err := s.files.Delete(name); err != nil {
			errs = append(errs, err)
			continue
		}
		cleared[format.Column()] = nil
	}

	if len(cleared) > 0 {
		err := s.db.WithContext(ctx).
			Model(&models.Submission{}).
			Where("id = ?", id).
			Updates(cleared).Error
		if err != nil {
			errs = append(errs, fmt.Errorf("clear file references for submission %d: %w", id, err))
		}
	}
	return len(cleared), errors.Join(errs...)
}

// IsFileReferenced reports whether any row names filename in a file column.
func (s *SubmissionService) IsFileReferenced(ctx context.Context, filename string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("signature_file_png = ? OR signature_file_webp = ? OR signature_file_svg = ?", filename, filename, filename).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check references for %s: %w", filename, err)
	}
	return count > 0, nil
}
