package services

import (
	"fmt"
	"html/template"
	"log"
	"sort"
	"strings"

	"signature-form-api/models"
)

// MailSender delivers one HTML message. *config.Mailer implements it.
type MailSender interface {
	SendMail(to []string, subject, html string) error
}

type emailMetaItem struct {
	Label string
	Value string
}

// NotificationService emails a confirmation to the signer and a notice to
// the configured admin addresses after a submission is stored.
type NotificationService struct {
	mailer          MailSender
	notifySubmitter bool
	adminEmails     []string
	async           bool
}

func NewNotificationService(mailer MailSender, notifySubmitter bool, adminEmails []string) *NotificationService {
	return &NotificationService{
		mailer:          mailer,
		notifySubmitter: notifySubmitter,
		adminEmails:     adminEmails,
		async:           true,
	}
}

// Enabled reports whether any message would be sent.
func (n *NotificationService) Enabled() bool {
	return n != nil && n.mailer != nil && (n.notifySubmitter || len(n.adminEmails) > 0)
}

// NotifySubmission queues the emails for submission. Delivery failures are
// logged and never reach the caller.
func (n *NotificationService) NotifySubmission(submission *models.Submission, files map[models.SignatureFormat]string) {
	if !n.Enabled() || submission == nil {
		return
	}
	meta := submissionMeta(submission, files)

	deliver := func() {
		if n.notifySubmitter && submission.Email != "" {
			subject := "We received your signed agreement"
			body := buildEmailTemplate(subject, []string{
				fmt.Sprintf("Dear %s,", submission.FullName),
				"Thank you. Your signed agreement has been received and recorded.",
			}, meta)
			n.sendMailSafe([]string{submission.Email}, subject, body)
		}
		if len(n.adminEmails) > 0 {
			subject := fmt.Sprintf("New agreement submission #%d", submission.ID)
			body := buildEmailTemplate(subject, []string{
				"A new agreement form has been submitted.",
			}, meta)
			n.sendMailSafe(n.adminEmails, subject, body)
		}
	}

	if n.async {
		go deliver()
		return
	}
	deliver()
}

func (n *NotificationService) sendMailSafe(to []string, subject, html string) {
	if err := n.mailer.SendMail(to, subject, html); err != nil {
		log.Printf("notification email send failed (subject=%q to=%v): %v", subject, to, err)
	}
}

func submissionMeta(submission *models.Submission, files map[models.SignatureFormat]string) []emailMetaItem {
	meta := []emailMetaItem{
		{Label: "Submission ID", Value: fmt.Sprintf("%d", submission.ID)},
		{Label: "Full name", Value: submission.FullName},
		{Label: "Email", Value: submission.Email},
	}
	if submission.Company != nil {
		meta = append(meta, emailMetaItem{Label: "Company", Value: *submission.Company})
	}
	meta = append(meta, emailMetaItem{Label: "Signature method", Value: string(submission.SignatureMethod)})
	if len(files) > 0 {
		formats := make([]string, 0, len(files))
		for format := range files {
			formats = append(formats, string(format))
		}
		sort.Strings(formats)
		meta = append(meta, emailMetaItem{Label: "Signature files", Value: strings.Join(formats, ", ")})
	}
	if !submission.SubmittedAt.IsZero() {
		meta = append(meta, emailMetaItem{Label: "Submitted at", Value: submission.SubmittedAt.Format(TimestampLayout)})
	}
	return meta
}

func buildEmailTemplate(subject string, paragraphs []string, meta []emailMetaItem) string {
	var content strings.Builder
	for _, paragraph := range paragraphs {
		trimmed := strings.TrimSpace(paragraph)
		if trimmed == "" {
			continue
		}
		content.WriteString(`<p style="margin:0 0 18px 0;line-height:1.7;word-break:break-word;">`)
		content.WriteString(template.HTMLEscapeString(trimmed))
		content.WriteString(`</p>`)
	}

	var rows strings.Builder
	for i, item := range meta {
		label := strings.TrimSpace(item.Label)
		value := strings.TrimSpace(item.Value)
		if label == "" || value == "" {
			continue
		}
		border := "border-bottom:1px solid #e5e7eb;"
		if i == len(meta)-1 {
			border = ""
		}
		fmt.Fprintf(&rows, `<tr>
<td style="padding:12px 16px;font-size:13px;color:#6b7280;width:38%%;%s">%s</td>
<td style="padding:12px 16px;font-size:15px;color:#111827;font-weight:600;%s">%s</td>
</tr>
`, border, template.HTMLEscapeString(label), border, template.HTMLEscapeString(value))
	}

	metaSection := ""
	if rows.Len() > 0 {
		metaSection = `<table role="presentation" cellpadding="0" cellspacing="0" width="100%" style="border:1px solid #e5e7eb;border-radius:12px;background-color:#f9fafb;"><tbody>` +
			rows.String() + `</tbody></table>`
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body style="margin:0;padding:0;background-color:#f9fafb;font-family:'Segoe UI',Tahoma,Arial,sans-serif;">
<div style="max-width:640px;margin:0 auto;padding:24px 20px;">
  <div style="background-color:#ffffff;border:1px solid #e5e7eb;border-radius:12px;padding:24px;">
    %s
    %s
  </div>
</div>
</body>
</html>`, template.HTMLEscapeString(subject), content.String(), metaSection)
}
