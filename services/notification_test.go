package services

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"signature-form-api/models"
)

type sentMail struct {
	to      []string
	subject string
	html    string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) SendMail(to []string, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, subject: subject, html: html})
	return m.err
}

func notificationSubmission() *models.Submission {
	company := "Acme <Labs>"
	return &models.Submission{
		ID:              12,
		FullName:        "Jane Doe",
		Email:           "jane@example.com",
		Company:         &company,
		SignatureMethod: models.SignatureDrawn,
		SubmittedAt:     time.Date(2026, 3, 1, 12, 30, 45, 0, time.UTC),
	}
}

func TestNotifySubmissionSendsSubmitterAndAdmin(t *testing.T) {
	mailer := &recordingMailer{}
	n := NewNotificationService(mailer, true, []string{"ops@example.com"})
	n.async = false

	n.NotifySubmission(notificationSubmission(), map[models.SignatureFormat]string{
		models.FormatWebP: "signature_12_20260301123045.webp",
		models.FormatPNG:  "signature_12_20260301123045.png",
	})

	if len(mailer.sent) != 2 {
		t.Fatalf("expected 2 emails, got %d", len(mailer.sent))
	}
	if mailer.sent[0].to[0] != "jane@example.com" {
		t.Fatalf("first email should go to the submitter, got %v", mailer.sent[0].to)
	}
	if mailer.sent[1].subject != "New agreement submission #12" {
		t.Fatalf("unexpected admin subject %q", mailer.sent[1].subject)
	}

	html := mailer.sent[1].html
	for _, want := range []string{"Acme &lt;Labs&gt;", "png, webp", "2026-03-01 12:30:45"} {
		if !strings.Contains(html, want) {
			t.Fatalf("admin email missing %q", want)
		}
	}
	if strings.Contains(html, "<Labs>") {
		t.Fatal("company name was not escaped")
	}
}

func TestNotifySubmissionDisabled(t *testing.T) {
	mailer := &recordingMailer{}
	n := NewNotificationService(mailer, false, nil)
	n.async = false

	if n.Enabled() {
		t.Fatal("expected notifications disabled without recipients")
	}
	n.NotifySubmission(notificationSubmission(), nil)
	if len(mailer.sent) != 0 {
		t.Fatalf("expected no email, got %d", len(mailer.sent))
	}

	var nilService *NotificationService
	nilService.NotifySubmission(notificationSubmission(), nil)
}

func TestNotifySubmissionSwallowsSendErrors(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("relay down")}
	n := NewNotificationService(mailer, true, []string{"ops@example.com"})
	n.async = false

	n.NotifySubmission(notificationSubmission(), nil)

	if len(mailer.sent) != 2 {
		t.Fatalf("expected both sends attempted, got %d", len(mailer.sent))
	}
}
