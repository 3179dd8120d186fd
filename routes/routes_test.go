package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signature-form-api/config"
	"signature-form-api/controllers"
	"signature-form-api/middleware"
	"signature-form-api/models"
	"signature-form-api/services"
)

type nopStore struct{}

func (nopStore) Insert(context.Context, *models.Submission) (uint, error) { return 1, nil }

func (nopStore) UpdateFileReferences(context.Context, uint, map[models.SignatureFormat]string) error {
	return nil
}

type emptyAdmin struct{}

func (emptyAdmin) Get(context.Context, uint) (*models.Submission, error) {
	return nil, services.ErrSubmissionNotFound
}

func (emptyAdmin) List(context.Context, int, int) ([]models.SubmissionSummary, int64, error) {
	return []models.SubmissionSummary{}, 0, nil
}

func (emptyAdmin) SignatureFilePaths(context.Context, uint) (map[models.SignatureFormat]string, error) {
	return map[models.SignatureFormat]string{}, nil
}

func (emptyAdmin) DeleteSignatureFiles(context.Context, uint) (int, error) { return 0, nil }

func newTestRouter(t *testing.T, secret string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	files, err := services.NewFileStore(dir)
	require.NoError(t, err)
	upload := config.UploadConfig{
		Path:           dir,
		MaxFileSize:    1024 * 1024,
		AllowedFormats: []models.SignatureFormat{models.FormatPNG},
		DefaultFormat:  models.FormatPNG,
	}
	agreements := services.NewAgreementService(nopStore{}, services.NewSignatureService(files, upload, nil), nil, true)

	router := gin.New()
	router.Use(middleware.MetricsMiddleware())
	SetupRoutes(router, Handlers{
		Agreement:      controllers.NewAgreementController(agreements, false),
		Admin:          controllers.NewAdminSubmissionController(emptyAdmin{}, nil, dir),
		Health:         controllers.NewHealthController(nil),
		AdminJWTSecret: secret,
	})
	return router
}

func do(r *gin.Engine, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAdminRoutesRequireSecret(t *testing.T) {
	r := newTestRouter(t, "")
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/v1/admin/submissions", "").Code)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	r := newTestRouter(t, "route-secret")
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/v1/admin/submissions", "").Code)

	token, err := middleware.IssueAdminToken("route-secret", "ops", time.Minute)
	require.NoError(t, err)
	rec := do(r, http.MethodGet, "/api/v1/admin/submissions", token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/v1/admin/submissions/9", token).Code)
}

func TestFormEndpointRejectsGet(t *testing.T) {
	r := newTestRouter(t, "")
	for _, target := range []string{"/submit-agreement", "/api/v1/agreements"} {
		rec := do(r, http.MethodGet, target, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Invalid request method. Only POST requests are allowed.", body["message"])
	}
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(t, "")

	rec := do(r, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = do(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "signature_http_requests_total")
}
