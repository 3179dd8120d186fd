package services

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"signature-form-api/models"
	"signature-form-api/utils"
)

// TermsAcceptedValue is what a checked agreeTerms checkbox posts.
const TermsAcceptedValue = "on"

var drawnSignaturePattern = regexp.MustCompile(`^data:image/(png|webp);base64,`)

// SubmissionForm is the raw form post. Pointer fields distinguish "absent" from "empty".
type SubmissionForm struct {
	FullName        string  `form:"fullName" json:"fullName"`
	Email           string  `form:"email" json:"email"`
	Company         string  `form:"company" json:"company"`
	SignatureMethod string  `form:"signatureMethod" json:"signatureMethod"`
	SignatureData   string  `form:"signatureData" json:"signatureData"`
	AgreeTerms      *string `form:"agreeTerms" json:"agreeTerms"`
	SignatureFormat string  `form:"signatureFormat" json:"signatureFormat"`
}

// ValidateSubmission returns every violation in form, in a fixed order.
// An empty result means the form is valid.
func ValidateSubmission(form SubmissionForm, requireSignature bool) []string {
	errs := []string{}

	if strings.TrimSpace(form.FullName) == "" {
		errs = append(errs, "Full name is required.")
	}

	if !utils.ValidateEmail(strings.TrimSpace(form.Email)) {
		errs = append(errs, "Valid email address is required.")
	}

	if form.AgreeTerms == nil || *form.AgreeTerms != TermsAcceptedValue {
		errs = append(errs, "You must agree to the terms and conditions.")
	}

	if !requireSignature && form.SignatureData == "" {
		return errs
	}

	switch {
	case form.SignatureData == "":
		errs = append(errs, "Signature is required.")
	case models.SignatureMethod(form.SignatureMethod) == models.SignatureDrawn:
		if !drawnSignaturePattern.MatchString(form.SignatureData) {
			errs = append(errs, "Invalid signature image format.")
		}
	case models.SignatureMethod(form.SignatureMethod) == models.SignatureTyped:
		if utf8.RuneCountInString(strings.TrimSpace(form.SignatureData)) < 2 {
			errs = append(errs, "Typed signature must be at least 2 characters long.")
		}
	default:
		errs = append(errs, "Invalid signature method.")
	}

	return errs
}
