package services

import (
	"context"
	"database/sql/driver"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"signature-form-api/models"
)

func newTestSubmissionService(t *testing.T, steps []*queryStep) (*SubmissionService, *scriptedDB, *FileStore) {
	t.Helper()
	db, state := newScriptedGormDB(t, steps)
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	return NewSubmissionService(db, store), state, store
}

func seedFile(t *testing.T, store *FileStore, name string) {
	t.Helper()
	if err := os.WriteFile(store.Path(name), []byte("x"), 0o644); err != nil {
		t.Fatalf("seed %s: %v", name, err)
	}
}

func submissionRow(id int64, png, webp any) []*queryStep {
	return []*queryStep{{
		kind:    kindQuery,
		pattern: regexp.MustCompile("SELECT \\* FROM `form_submissions` WHERE id = \\?"),
		columns: []string{"id", "full_name", "email", "signature_method", "signature_file_png", "signature_file_webp", "signature_file_svg", "agree_terms"},
		rows:    [][]driver.Value{{id, "Jane Doe", "jane@example.com", "drawn", png, webp, nil, true}},
	}}
}

func TestInsertUsesParameterizedCreate(t *testing.T) {
	file := "signature_tmpabc_20260301123045_0a1b2c3d.png"
	steps := []*queryStep{{
		kind:    kindExec,
		pattern: regexp.MustCompile("^INSERT INTO `form_submissions` \\(`full_name`,`email`,`company`,`signature_method`,`signature_data`,`signature_file_png`,`signature_file_webp`,`signature_file_svg`,`agree_terms`,`ip_address`,`user_agent`,`submitted_at`\\) VALUES \\(\\?,\\?,\\?,\\?,\\?,\\?,\\?,\\?,\\?,\\?,\\?,\\?\\)$"),
		args: []driver.Value{
			"Robert'); DROP TABLE form_submissions;--", "bobby@example.com", nil, "drawn", nil,
			file, nil, nil, true, "10.0.0.1", "test-agent", anyArg{},
		},
		result: scriptedResult{lastInsertID: 17, rowsAffected: 1},
	}}
	svc, state, _ := newTestSubmissionService(t, steps)

	submission := &models.Submission{
		FullName:        "Robert'); DROP TABLE form_submissions;--",
		Email:           "bobby@example.com",
		SignatureMethod: models.SignatureDrawn,
		AgreeTerms:      true,
		IPAddress:       "10.0.0.1",
		UserAgent:       "test-agent",
	}
	submission.SetSignatureFile(models.FormatPNG, file)

	id, err := svc.Insert(context.Background(), submission)
	if err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	if id != 17 {
		t.Fatalf("expected id 17, got %d", id)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestInsertReturnsDriverError(t *testing.T) {
	boom := errors.New("connection refused")
	steps := []*queryStep{{
		kind:    kindExec,
		pattern: regexp.MustCompile("^INSERT INTO `form_submissions`"),
		err:     boom,
	}}
	svc, _, _ := newTestSubmissionService(t, steps)

	_, err := svc.Insert(context.Background(), &models.Submission{FullName: "A", Email: "a@example.com", SignatureMethod: models.SignatureTyped, AgreeTerms: true})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped driver error, got %v", err)
	}
}

func TestUpdateFileReferencesTouchesOnlyGivenFormats(t *testing.T) {
	steps := []*queryStep{{
		kind:    kindExec,
		pattern: regexp.MustCompile("^UPDATE `form_submissions` SET `signature_file_png`=\\?,`signature_file_svg`=\\? WHERE id = \\?$"),
		args:    []driver.Value{"signature_42_20260301123045.png", "signature_42_20260301123045.svg", int64(42)},
	}}
	svc, state, _ := newTestSubmissionService(t, steps)

	err := svc.UpdateFileReferences(context.Background(), 42, map[models.SignatureFormat]string{
		models.FormatSVG: "signature_42_20260301123045.svg",
		models.FormatPNG: "signature_42_20260301123045.png",
	})
	if err != nil {
		t.Fatalf("UpdateFileReferences returned error: %v", err)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateFileReferencesWithNoFilesIssuesNoQuery(t *testing.T) {
	svc, state, _ := newTestSubmissionService(t, nil)

	if err := svc.UpdateFileReferences(context.Background(), 42, map[models.SignatureFormat]string{}); err != nil {
		t.Fatalf("UpdateFileReferences returned error: %v", err)
	}
	if err := svc.UpdateFileReferences(context.Background(), 42, nil); err != nil {
		t.Fatalf("UpdateFileReferences returned error: %v", err)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestGetMapsMissingRowToNotFound(t *testing.T) {
	steps := []*queryStep{{
		kind:    kindQuery,
		pattern: regexp.MustCompile("SELECT \\* FROM `form_submissions` WHERE id = \\?"),
		columns: []string{"id"},
		rows:    [][]driver.Value{},
	}}
	svc, _, _ := newTestSubmissionService(t, steps)

	_, err := svc.Get(context.Background(), 99)
	if !errors.Is(err, ErrSubmissionNotFound) {
		t.Fatalf("expected ErrSubmissionNotFound, got %v", err)
	}
}

func TestListClampsPaging(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT count\\(\\*\\) FROM `form_submissions`"),
			columns: []string{"count(*)"},
			rows:    [][]driver.Value{{int64(2)}},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT `id`,`full_name`,`email`,`company`,`signature_method`,`signature_file_png`,`signature_file_webp`,`signature_file_svg`,`submitted_at` FROM `form_submissions` ORDER BY submitted_at DESC, id DESC LIMIT"),
			columns: []string{"id", "full_name", "email", "signature_method"},
			rows: [][]driver.Value{
				{int64(2), "B", "b@example.com", "typed"},
				{int64(1), "A", "a@example.com", "drawn"},
			},
		},
	}
	svc, state, _ := newTestSubmissionService(t, steps)

	items, total, err := svc.List(context.Background(), 0, 1000)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("expected 2 rows, got total=%d items=%d", total, len(items))
	}
	if items[0].ID != 2 || items[1].SignatureMethod != models.SignatureDrawn {
		t.Fatalf("unexpected rows: %+v", items)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestSignatureFilePathsSkipsMissingFiles(t *testing.T) {
	png := "signature_5_20260301123045.png"
	webp := "signature_5_20260301123045.webp"
	svc, _, store := newTestSubmissionService(t, submissionRow(5, png, webp))
	seedFile(t, store, png)

	paths, err := svc.SignatureFilePaths(context.Background(), 5)
	if err != nil {
		t.Fatalf("SignatureFilePaths returned error: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected only the png path, got %+v", paths)
	}
	want, _ := filepath.Abs(store.Path(png))
	if paths[models.FormatPNG] != want {
		t.Fatalf("expected %s, got %s", want, paths[models.FormatPNG])
	}
}

func TestDeleteSignatureFilesRemovesAndClears(t *testing.T) {
	png := "signature_5_20260301123045.png"
	webp := "signature_5_20260301123045.webp"
	steps := append(submissionRow(5, png, webp), &queryStep{
		kind:    kindExec,
		pattern: regexp.MustCompile("^UPDATE `form_submissions` SET `signature_file_png`=\\?,`signature_file_webp`=\\? WHERE id = \\?$"),
		args:    []driver.Value{nil, nil, int64(5)},
	})
	svc, state, store := newTestSubmissionService(t, steps)
	seedFile(t, store, png)
	seedFile(t, store, webp)

	removed, err := svc.DeleteSignatureFiles(context.Background(), 5)
	if err != nil {
		t.Fatalf("DeleteSignatureFiles returned error: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 files removed, got %d", removed)
	}
	if store.Exists(png) || store.Exists(webp) {
		t.Fatalf("files still on disk")
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestDeleteSignatureFilesUnknownID(t *testing.T) {
	steps := []*queryStep{{
		kind:    kindQuery,
		pattern: regexp.MustCompile("SELECT \\* FROM `form_submissions`"),
		columns: []string{"id"},
		rows:    [][]driver.Value{},
	}}
	svc, _, _ := newTestSubmissionService(t, steps)

	removed, err := svc.DeleteSignatureFiles(context.Background(), 404)
	if err != nil || removed != 0 {
		t.Fatalf("expected (0, nil), got (%d, %v)", removed, err)
	}
}

func TestIsFileReferenced(t *testing.T) {
	name := "signature_tmpabc_20260301123045_0a1b2c3d.png"
	steps := []*queryStep{{
		kind:    kindQuery,
		pattern: regexp.MustCompile("SELECT count\\(\\*\\) FROM `form_submissions` WHERE \\(?signature_file_png = \\? OR signature_file_webp = \\? OR signature_file_svg = \\?"),
		args:    []driver.Value{name, name, name},
		columns: []string{"count(*)"},
		rows:    [][]driver.Value{{int64(1)}},
	}}
	svc, _, _ := newTestSubmissionService(t, steps)

	referenced, err := svc.IsFileReferenced(context.Background(), name)
	if err != nil {
		t.Fatalf("IsFileReferenced returned error: %v", err)
	}
	if !referenced {
		t.Fatalf("expected file to be referenced")
	}
}
