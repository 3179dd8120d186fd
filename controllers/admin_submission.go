package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"signature-form-api/config"
	"signature-form-api/models"
	"signature-form-api/services"
)

// SubmissionAdmin is the read and maintenance side of the submission store.
type SubmissionAdmin interface {
	Get(ctx context.Context, id uint) (*models.Submission, error)
	List(ctx context.Context, page, perPage int) ([]models.SubmissionSummary, int64, error)
	SignatureFilePaths(ctx context.Context, id uint) (map[models.SignatureFormat]string, error)
	DeleteSignatureFiles(ctx context.Context, id uint) (int, error)
}

// Sweeper removes orphaned signature files on demand.
type Sweeper interface {
	Sweep(ctx context.Context) (*services.SweepSummary, error)
}

// AdminSubmissionController serves the JWT-protected admin routes.
type AdminSubmissionController struct {
	submissions SubmissionAdmin
	sweeper     Sweeper
	logDir      string
}

func NewAdminSubmissionController(submissions SubmissionAdmin, sweeper Sweeper, logDir string) *AdminSubmissionController {
	return &AdminSubmissionController{submissions: submissions, sweeper: sweeper, logDir: logDir}
}

// GET /admin/submissions
func (ac *AdminSubmissionController) ListSubmissions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "50"))

	items, total, err := ac.submissions.List(c.Request.Context(), page, perPage)
	if err != nil {
		log.Printf("[ListSubmissions] error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list submissions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"pagination": gin.H{
			"page":     page,
			"per_page": perPage,
			"total":    total,
		},
	})
}

// GET /admin/submissions/:id
func (ac *AdminSubmissionController) GetSubmission(c *gin.Context) {
	id, ok := submissionID(c)
	if !ok {
		return
	}

	submission, err := ac.submissions.Get(c.Request.Context(), id)
	if err != nil {
		respondLookupError(c, "GetSubmission", id, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": submission})
}

// GET /admin/submissions/:id/signature-files
func (ac *AdminSubmissionController) GetSignatureFiles(c *gin.Context) {
	id, ok := submissionID(c)
	if !ok {
		return
	}

	paths, err := ac.submissions.SignatureFilePaths(c.Request.Context(), id)
	if err != nil {
		respondLookupError(c, "GetSignatureFiles", id, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": paths})
}

// GET /admin/submissions/:id/signature/:format
func (ac *AdminSubmissionController) DownloadSignature(c *gin.Context) {
	id, ok := submissionID(c)
	if !ok {
		return
	}
	format, ok := models.ParseSignatureFormat(c.Param("format"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown signature format"})
		return
	}

	paths, err := ac.submissions.SignatureFilePaths(c.Request.Context(), id)
	if err != nil {
		respondLookupError(c, "DownloadSignature", id, err)
		return
	}
	path, ok := paths[format]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "signature file not found"})
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}

// DELETE /admin/submissions/:id/signature-files
func (ac *AdminSubmissionController) DeleteSignatureFiles(c *gin.Context) {
	id, ok := submissionID(c)
	if !ok {
		return
	}

	removed, err := ac.submissions.DeleteSignatureFiles(c.Request.Context(), id)
	if err != nil {
		log.Printf("[DeleteSignatureFiles] submission %d error: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete signature files", "deleted": removed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": removed})
}

// POST /admin/maintenance/sweep-orphans
func (ac *AdminSubmissionController) SweepOrphans(c *gin.Context) {
	summary, err := ac.sweeper.Sweep(c.Request.Context())
	if errors.Is(err, services.ErrSweepAlreadyRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Printf("[SweepOrphans] error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "orphan sweep failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": summary})
}

// GET /admin/logs/:kind
func (ac *AdminSubmissionController) GetEventLog(c *gin.Context) {
	path, ok := config.EventLogPath(ac.logDir, c.Param("kind"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "log kind must be errors or success"})
		return
	}

	logData, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		c.Data(http.StatusOK, "text/plain; charset=utf-8", nil)
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to read log"})
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", logData)
}

func submissionID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid submission id"})
		return 0, false
	}
	return uint(id), true
}

func respondLookupError(c *gin.Context, op string, id uint, err error) {
	if errors.Is(err, services.ErrSubmissionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
		return
	}
	log.Printf("[%s] submission %d error: %v", op, id, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load submission"})
}
