package handlers

import (
	"errors"
	"library/api/middleware"
	"library/services"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

var loanRequestService = services.NewLoanRequestService()

func loanErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrBookNotFound), errors.Is(err, services.ErrRequestNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrNotRequester):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotPending), errors.Is(err, services.ErrNoCopies):
		return http.StatusConflict
	case errors.Is(err, services.ErrBadDecision):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// CreateLoanRequest - обработчик подачи заявки на книгу
func CreateLoanRequest(c *gin.Context) {
	type req struct {
		BookID int64 `json:"book_id" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	userID := c.GetInt64("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	start := time.Now()
	request, alreadyPending, err := loanRequestService.Create(c.Request.Context(), userID, r.BookID, c.GetHeader("X-Socket-ID"))
	middleware.RecordLoanOperation("create", statusLabel(err), "library", time.Since(start), err)
	if err != nil {
		c.JSON(loanErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	message := "loan request submitted"
	if alreadyPending {
		message = "loan request already pending"
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         message,
		"loan_request":    request,
		"already_pending": alreadyPending,
	})
}

// CancelLoanRequest - обработчик отмены заявки читателем
func CancelLoanRequest(c *gin.Context) {
	requestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}
	userID := c.GetInt64("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	start := time.Now()
	request, err := loanRequestService.Cancel(c.Request.Context(), userID, requestID, c.GetHeader("X-Socket-ID"))
	middleware.RecordLoanOperation("cancel", statusLabel(err), "library", time.Since(start), err)
	if err != nil {
		c.JSON(loanErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "loan request canceled",
		"loan_request": request,
	})
}

// DecideLoanRequest - обработчик решения библиотекаря
func DecideLoanRequest(c *gin.Context) {
	type req struct {
		Decision string `json:"decision" binding:"required"`
	}
	requestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	adminID := c.GetInt64("user_id")

	start := time.Now()
	request, err := loanRequestService.Decide(c.Request.Context(), adminID, requestID, r.Decision, c.GetHeader("X-Socket-ID"))
	middleware.RecordLoanOperation("decide", statusLabel(err), "library", time.Since(start), err)
	if err != nil {
		c.JSON(loanErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "loan request " + request.Status,
	})
}

// GetMyLoanRequests - заявки текущего читателя
func GetMyLoanRequests(c *gin.Context) {
	userID := c.GetInt64("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	requests, err := loanRequestService.ListForRequester(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"loan_requests": requests})
}

// GetPendingLoanRequests - очередь заявок для админской панели
func GetPendingLoanRequests(c *gin.Context) {
	requests, err := loanRequestService.ListPending(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	count, err := services.GetPendingCount(c.Request.Context())
	if err != nil {
		count = int64(len(requests))
	}
	c.JSON(http.StatusOK, gin.H{"loan_requests": requests, "pending_count": count})
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
