package services

import (
	"context"
	"fmt"
	"strings"

	"signature-form-api/config"
	"signature-form-api/models"
	"signature-form-api/utils"
)

// TimestampLayout formats every timestamp shown to clients and written to event logs.
const TimestampLayout = "2006-01-02 15:04:05"

// SubmissionStore persists submission rows. *SubmissionService implements it.
type SubmissionStore interface {
	Insert(ctx context.Context, submission *models.Submission) (uint, error)
	UpdateFileReferences(ctx context.Context, id uint, files map[models.SignatureFormat]string) error
}

// SubmissionNotifier is told about every stored submission.
type SubmissionNotifier interface {
	NotifySubmission(submission *models.Submission, files map[models.SignatureFormat]string)
}

// SubmissionRequest is one form post plus the request metadata stored with it.
type SubmissionRequest struct {
	Form      SubmissionForm
	IPAddress string
	UserAgent string
}

// SubmissionResult is what a successful submission reports back.
type SubmissionResult struct {
	SubmissionID    uint                              `json:"submission_id"`
	SignatureMethod models.SignatureMethod            `json:"signature_method"`
	SignatureFiles  map[models.SignatureFormat]string `json:"signature_files"`
}

// AgreementService runs one submission from validation to the stored row.
type AgreementService struct {
	store            SubmissionStore
	signatures       *SignatureService
	logs             *config.EventLogs
	notifier         SubmissionNotifier
	requireSignature bool
}

func NewAgreementService(store SubmissionStore, signatures *SignatureService, logs *config.EventLogs, requireSignature bool) *AgreementService {
	return &AgreementService{
		store:            store,
		signatures:       signatures,
		logs:             logs,
		requireSignature: requireSignature,
	}
}

// WithNotifier attaches a notifier that is called after each stored submission.
func (s *AgreementService) WithNotifier(notifier SubmissionNotifier) *AgreementService {
	s.notifier = notifier
	return s
}

// Submit validates req, saves a drawn signature, inserts the row and moves
// the files to their id-based names. Every failure is a *SubmissionError.
func (s *AgreementService) Submit(ctx context.Context, req SubmissionRequest) (*SubmissionResult, error) {
	if err := s.signatures.Files().EnsureDir(); err != nil {
		s.logs.Error("Failed to create upload directory", map[string]any{
			"path":  s.signatures.Files().Dir(),
			"error": err.Error(),
		})
		return nil, configurationError("prepare upload directory", "Upload directory setup failed.", err)
	}

	form := req.Form
	if errs := ValidateSubmission(form, s.requireSignature); len(errs) > 0 {
		return nil, validationError(errs)
	}

	submission := buildSubmission(form, req)

	var files map[models.SignatureFormat]string
	if submission.SignatureMethod == models.SignatureDrawn {
		saved, err := s.signatures.Save(form.SignatureData, NewTempToken(), s.signatures.ResolveFormats(form.SignatureFormat))
		if err != nil {
			return nil, err
		}
		files = saved
		for format, name := range files {
			submission.SetSignatureFile(format, name)
		}
	}

	id, err := s.store.Insert(ctx, submission)
	if err != nil {
		s.cleanup(files)
		s.logs.Error("Database error during submission", map[string]any{
			"error": err.Error(),
			"email": submission.Email,
		})
		return nil, persistenceError("insert submission", "Database error occurred. Please try again.", err)
	}
	submission.ID = id

	// From here on the row exists, so client cancellation no longer applies.
	pctx := detachedContext(ctx)
	if len(files) > 0 {
		final, err := s.finalizeFiles(pctx, id, files)
		if err != nil {
			return nil, err
		}
		files = final
		for format, name := range files {
			submission.SetSignatureFile(format, name)
		}
	}

	s.logs.Success(fmt.Sprintf("Form submitted successfully - ID: %d, Email: %s, Method: %s", id, submission.Email, submission.SignatureMethod))

	if s.notifier != nil {
		s.notifier.NotifySubmission(submission, files)
	}

	if files == nil {
		files = map[models.SignatureFormat]string{}
	}
	return &SubmissionResult{
		SubmissionID:    id,
		SignatureMethod: submission.SignatureMethod,
		SignatureFiles:  files,
	}, nil
}

// finalizeFiles renames temp-named files to their id-based names and records
// the new names. Files that could not be renamed keep their temp names, which
// the row still references.
func (s *AgreementService) finalizeFiles(ctx context.Context, id uint, files map[models.SignatureFormat]string) (map[models.SignatureFormat]string, error) {
	result := s.signatures.Rename(id, files)
	for format, err := range result.Failed {
		s.logs.Error("Signature file rename failed", map[string]any{
			"submission_id": id,
			"format":        format,
			"file":          files[format],
			"error":         err.Error(),
		})
	}

	if err := s.store.UpdateFileReferences(ctx, id, result.Renamed); err != nil {
		if restoreErr := s.signatures.Restore(files, result.Renamed); restoreErr != nil {
			s.logs.Error("Signature file restore failed", map[string]any{
				"submission_id": id,
				"error":         restoreErr.Error(),
			})
		}
		s.logs.Error("Database error during submission", map[string]any{
			"error":         err.Error(),
			"submission_id": id,
		})
		return nil, persistenceError("update file references", "Database error occurred. Please try again.", err)
	}

	final := make(map[models.SignatureFormat]string, len(files))
	for format, name := range files {
		final[format] = name
	}
	for format, name := range result.Renamed {
		final[format] = name
	}
	return final, nil
}

func (s *AgreementService) cleanup(files map[models.SignatureFormat]string) {
	if len(files) == 0 {
		return
	}
	if _, err := s.signatures.Remove(files); err != nil {
		s.logs.Error("Signature file cleanup failed", map[string]any{
			"files": files,
			"error": err.Error(),
		})
	}
}

// buildSubmission maps a valid form onto a row. With an optional signature
// left empty the row is typed with neither text nor files.
func buildSubmission(form SubmissionForm, req SubmissionRequest) *models.Submission {
	submission := &models.Submission{
		FullName:        utils.SanitizeInput(form.FullName),
		Email:           strings.ToLower(utils.SanitizeInput(form.Email)),
		SignatureMethod: models.SignatureTyped,
		AgreeTerms:      true,
		IPAddress:       req.IPAddress,
		UserAgent:       req.UserAgent,
	}
	if company := utils.SanitizeInput(form.Company); company != "" {
		submission.Company = &company
	}

	if form.SignatureData == "" {
		return submission
	}
	submission.SignatureMethod = models.SignatureMethod(form.SignatureMethod)
	if submission.SignatureMethod == models.SignatureTyped {
		text := utils.SanitizeInput(form.SignatureData)
		submission.SignatureText = &text
	}
	return submission
}
