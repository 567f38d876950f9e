// Package controller exposes the booking core over HTTP. Handlers are
// thin: parse input, call the service, map the error taxonomy to status
// codes. Identity arrives as an opaque student id header set by the
// out-of-scope gateway; the core never reads ambient session state.
package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tutorlink/booking_service/internal/service"
)

const studentIDHeader = "X-Student-ID"

type Handler struct {
	bookingService  *service.BookingService
	scheduleService *service.ScheduleService
	listWindow      time.Duration
	logger          *zap.Logger
}

func NewHandler(
	bookingService *service.BookingService,
	scheduleService *service.ScheduleService,
	listWindow time.Duration,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		bookingService:  bookingService,
		scheduleService: scheduleService,
		listWindow:      listWindow,
		logger:          logger,
	}
}

type patternRequest struct {
	HoursByWeekday map[int][]int `json:"hours_by_weekday"`
	Timezone       string        `json:"timezone"`
}

// SavePattern PUT /tutors/:id/pattern
func (h *Handler) SavePattern(c *gin.Context) {
	tutorID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req patternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid pattern body")
		return
	}

	report, err := h.scheduleService.SavePattern(c.Request.Context(), tutorID, req.HoursByWeekday, req.Timezone)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": report})
}

// SyncSchedule POST /tutors/:id/sync
func (h *Handler) SyncSchedule(c *gin.Context) {
	tutorID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	report, err := h.scheduleService.SyncSchedule(c.Request.Context(), tutorID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": report})
}

// ListAvailableSlots GET /tutors/:id/slots?from=...&to=...
func (h *Handler) ListAvailableSlots(c *gin.Context) {
	tutorID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	now := time.Now().UTC()
	from, ok := parseTimeQuery(c, "from", now)
	if !ok {
		return
	}
	to, ok := parseTimeQuery(c, "to", from.Add(h.listWindow))
	if !ok {
		return
	}

	slots, err := h.bookingService.ListAvailableSlots(c.Request.Context(), tutorID, from, to)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": slots})
}

// HoldSlot POST /slots/:id/hold
func (h *Handler) HoldSlot(c *gin.Context) {
	slotID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	studentID, ok := requireStudentID(c)
	if !ok {
		return
	}

	slot, err := h.bookingService.HoldSlot(c.Request.Context(), slotID, studentID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": slot})
}

// ReleaseSlot POST /slots/:id/release
func (h *Handler) ReleaseSlot(c *gin.Context) {
	slotID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	studentID, ok := requireStudentID(c)
	if !ok {
		return
	}

	if err := h.bookingService.ReleaseSlot(c.Request.Context(), slotID, studentID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// BookSlot POST /slots/:id/book
func (h *Handler) BookSlot(c *gin.Context) {
	slotID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	studentID, ok := requireStudentID(c)
	if !ok {
		return
	}

	booking, err := h.bookingService.BookSlot(c.Request.Context(), slotID, studentID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": booking})
}

// GetBooking GET /bookings/:id
func (h *Handler) GetBooking(c *gin.Context) {
	bookingID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	booking, err := h.bookingService.GetBooking(c.Request.Context(), bookingID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": booking})
}

// respondError переводит таксономию ошибок сервиса в HTTP статусы.
// Conflict — ожидаемый исход гонки, отвечаем 409 с подсказкой действия.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		abortJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, service.ErrNotFound):
		abortJSON(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		abortJSON(c, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, service.ErrHoldExpired):
		abortJSON(c, http.StatusConflict, "HOLD_EXPIRED", "Your hold on this slot expired. Please pick another time.")
	case errors.Is(err, service.ErrConflict):
		abortJSON(c, http.StatusConflict, "SLOT_UNAVAILABLE", "This slot is no longer available. Please pick another time.")
	default:
		h.logger.Error("Request failed", zap.Error(err), zap.String("path", c.FullPath()))
		abortJSON(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error, please retry")
	}
}

func abortJSON(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   gin.H{"code": code, "message": message},
	})
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		abortJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func parseTimeQuery(c *gin.Context, name string, fallback time.Time) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		abortJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", name+" must be RFC3339")
		return time.Time{}, false
	}
	return t.UTC(), true
}

func requireStudentID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetHeader(studentIDHeader)
	if raw == "" {
		abortJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", studentIDHeader+" header is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		abortJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid "+studentIDHeader)
		return uuid.Nil, false
	}
	return id, true
}
