package models

import (
	"strings"
	"time"
)

// SignatureMethod is how the signer produced their signature.
type SignatureMethod string

const (
	SignatureDrawn SignatureMethod = "drawn"
	SignatureTyped SignatureMethod = "typed"
)

// SignatureFormat is the on-disk format of a saved signature image.
type SignatureFormat string

const (
	FormatPNG  SignatureFormat = "png"
	FormatWebP SignatureFormat = "webp"
	FormatSVG  SignatureFormat = "svg"
)

// AllSignatureFormats lists every format a submission row has a column for,
// in column order.
var AllSignatureFormats = []SignatureFormat{FormatPNG, FormatWebP, FormatSVG}

// ParseSignatureFormat maps a case-insensitive name to a known format.
func ParseSignatureFormat(name string) (SignatureFormat, bool) {
	switch SignatureFormat(strings.ToLower(strings.TrimSpace(name))) {
	case FormatPNG:
		return FormatPNG, true
	case FormatWebP:
		return FormatWebP, true
	case FormatSVG:
		return FormatSVG, true
	}
	return "", false
}

// Extension returns the filename extension without the dot.
func (f SignatureFormat) Extension() string {
	return string(f)
}

// Column returns the form_submissions column holding this format's filename.
func (f SignatureFormat) Column() string {
	return "signature_file_" + string(f)
}

// Submission represents the form_submissions table
type Submission struct {
	ID                uint            `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	FullName          string          `gorm:"column:full_name;type:varchar(255);not null" json:"full_name"`
	Email             string          `gorm:"column:email;type:varchar(255);not null;index:idx_email" json:"email"`
	Company           *string         `gorm:"column:company;type:varchar(255)" json:"company"`
	SignatureMethod   SignatureMethod `gorm:"column:signature_method;type:enum('drawn','typed');not null" json:"signature_method"`
	SignatureText     *string         `gorm:"column:signature_data;type:text" json:"signature_data"`
	SignatureFilePNG  *string         `gorm:"column:signature_file_png;type:varchar(255)" json:"signature_file_png"`
	SignatureFileWebP *string         `gorm:"column:signature_file_webp;type:varchar(255)" json:"signature_file_webp"`
	SignatureFileSVG  *string         `gorm:"column:signature_file_svg;type:varchar(255)" json:"signature_file_svg"`
	AgreeTerms        bool            `gorm:"column:agree_terms;not null" json:"agree_terms"`
	IPAddress         string          `gorm:"column:ip_address;type:varchar(45)" json:"ip_address"`
	UserAgent         string          `gorm:"column:user_agent;type:text" json:"user_agent"`
	SubmittedAt       time.Time       `gorm:"column:submitted_at;autoCreateTime;index:idx_submitted_at" json:"submitted_at"`
}

// TableName overrides
func (Submission) TableName() string {
	return "form_submissions"
}

// SignatureFiles returns the populated file columns keyed by format.
func (s *Submission) SignatureFiles() map[SignatureFormat]string {
	files := make(map[SignatureFormat]string, len(AllSignatureFormats))
	for _, format := range AllSignatureFormats {
		if name := s.fileColumn(format); name != nil && *name != "" {
			files[format] = *name
		}
	}
	return files
}

// SetSignatureFile stores name in the column for format. An empty name clears it.
func (s *Submission) SetSignatureFile(format SignatureFormat, name string) {
	var value *string
	if name != "" {
		v := name
		value = &v
	}
	switch format {
	case FormatPNG:
		s.SignatureFilePNG = value
	case FormatWebP:
		s.SignatureFileWebP = value
	case FormatSVG:
		s.SignatureFileSVG = value
	}
}

func (s *Submission) fileColumn(format SignatureFormat) *string {
	switch format {
	case FormatPNG:
		return s.SignatureFilePNG
	case FormatWebP:
		return s.SignatureFileWebP
	case FormatSVG:
		return s.SignatureFileSVG
	}
	return nil
}

// SubmissionSummary is the listing projection; it leaves out the
// signature text and request metadata.
type SubmissionSummary struct {
	ID                uint            `gorm:"column:id" json:"id"`
	FullName          string          `gorm:"column:full_name" json:"full_name"`
	Email             string          `gorm:"column:email" json:"email"`
	Company           *string         `gorm:"column:company" json:"company"`
	SignatureMethod   SignatureMethod `gorm:"column:signature_method" json:"signature_method"`
	SignatureFilePNG  *string         `gorm:"column:signature_file_png" json:"signature_file_png"`
	SignatureFileWebP *string         `gorm:"column:signature_file_webp" json:"signature_file_webp"`
	SignatureFileSVG  *string         `gorm:"column:signature_file_svg" json:"signature_file_svg"`
	SubmittedAt       time.Time       `gorm:"column:submitted_at" json:"submitted_at"`
}
