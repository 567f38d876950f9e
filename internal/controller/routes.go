package controller

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты ядра бронирования
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.PUT("/tutors/:id/pattern", h.SavePattern)
	rg.POST("/tutors/:id/sync", h.SyncSchedule)
	rg.GET("/tutors/:id/slots", h.ListAvailableSlots)

	rg.POST("/slots/:id/hold", h.HoldSlot)
	rg.POST("/slots/:id/release", h.ReleaseSlot)
	rg.POST("/slots/:id/book", h.BookSlot)

	rg.GET("/bookings/:id", h.GetBooking)
}
