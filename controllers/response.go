package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"signature-form-api/services"
)

// Response is the envelope every form submission answer uses.
type Response struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

var now = time.Now

// sendResponse writes the envelope with HTTP 200; outcome is carried in Success.
func sendResponse(c *gin.Context, success bool, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success:   success,
		Message:   message,
		Data:      data,
		Timestamp: now().Format(services.TimestampLayout),
	})
}
