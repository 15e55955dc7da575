package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Router wires the HTTP surface of the engine.
type Router struct {
	booking  *BookingHandler
	calendar *CalendarHandler
	webhook  *WebhookHandler
}

// NewRouter creates a new router over the engine's handlers.
func NewRouter(booking *BookingHandler, calendar *CalendarHandler, webhook *WebhookHandler) *Router {
	return &Router{
		booking:  booking,
		calendar: calendar,
		webhook:  webhook,
	}
}

// Setup registers all routes on the given engine.
func (r *Router) Setup(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/api/v1")

	bookings := v1.Group("/bookings")
	{
		bookings.POST("", r.booking.Create)
		bookings.GET("/:id", r.booking.Get)
		bookings.GET("/reference/:reference", r.booking.GetByReference)
		bookings.POST("/:id/payment", r.booking.ConfirmPayment)
		bookings.POST("/:id/cancel", r.booking.Cancel)
		bookings.POST("/:id/refund", r.booking.Refund)
		bookings.POST("/:id/check-in", r.booking.CheckIn)
		bookings.POST("/:id/check-out", r.booking.CheckOut)
		bookings.POST("/:id/complete", r.booking.Complete)
	}

	rooms := v1.Group("/rooms")
	{
		rooms.GET("/:id/calendar", r.calendar.GetCalendar)
		rooms.POST("/:id/block", r.calendar.Block)
		rooms.POST("/:id/unblock", r.calendar.Unblock)
		rooms.GET("/:id/prices", r.calendar.GetPrices)
		rooms.PUT("/:id/prices", r.calendar.SetPrices)
		rooms.PUT("/:id/prices/day", r.calendar.SetDayPrice)
	}

	v1.POST("/webhooks/payment", r.webhook.HandlePaymentWebhook)
}
