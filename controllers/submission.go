package controllers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"signature-form-api/middleware"
	"signature-form-api/services"
)

const (
	msgInvalidMethod   = "Invalid request method. Only POST requests are allowed."
	msgValidation      = "Validation failed"
	msgSuccess         = "Form submitted successfully!"
	msgGenericFailure  = "An error occurred while processing your submission. Please try again."
	msgDatabaseFailure = "Database error occurred. Please try again."
	msgUploadDirFailed = "Upload directory setup failed."
	msgInvalidFormData = "Invalid form data."
)

// AgreementController serves the public signature form endpoint.
type AgreementController struct {
	agreements *services.AgreementService
	debug      bool
}

func NewAgreementController(agreements *services.AgreementService, debug bool) *AgreementController {
	return &AgreementController{agreements: agreements, debug: debug}
}

// SubmitAgreement handles /submit-agreement for every method; only POST is processed.
func (ac *AgreementController) SubmitAgreement(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		sendResponse(c, false, msgInvalidMethod, nil)
		return
	}

	var form services.SubmissionForm
	if err := c.ShouldBind(&form); err != nil {
		log.Printf("[SubmitAgreement] bind error: %v", err)
		middleware.RecordSubmission(services.KindValidation.String())
		sendResponse(c, false, msgValidation, gin.H{"errors": []string{msgInvalidFormData}})
		return
	}

	result, err := ac.agreements.Submit(c.Request.Context(), services.SubmissionRequest{
		Form:      form,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		ac.respondError(c, err)
		return
	}

	formats := make([]string, 0, len(result.SignatureFiles))
	for format := range result.SignatureFiles {
		formats = append(formats, string(format))
	}
	middleware.RecordSubmission("success", formats...)
	sendResponse(c, true, msgSuccess, result)
}

func (ac *AgreementController) respondError(c *gin.Context, err error) {
	kind := services.KindOf(err)
	middleware.RecordSubmission(kind.String())

	switch kind {
	case services.KindValidation:
		var se *services.SubmissionError
		errors.As(err, &se)
		sendResponse(c, false, msgValidation, gin.H{"errors": se.Details})
	case services.KindDecode:
		msg := services.DecodeMessage(err)
		sendResponse(c, false, msg, gin.H{"errors": []string{msg}})
	case services.KindPersistence:
		sendResponse(c, false, msgDatabaseFailure, ac.debugData(err))
	case services.KindConfiguration:
		sendResponse(c, false, msgUploadDirFailed, ac.debugData(err))
	default:
		log.Printf("[SubmitAgreement] submission failed: %v", err)
		sendResponse(c, false, msgGenericFailure, ac.debugData(err))
	}
}

// debugData exposes the full error only when DEBUG_MODE is on.
func (ac *AgreementController) debugData(err error) interface{} {
	if !ac.debug {
		return nil
	}
	return gin.H{"error": err.Error()}
}
