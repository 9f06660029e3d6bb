package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Limits bounds the upload routes.
type Limits struct {
	// RequestsPerSecond and Burst configure the token bucket; zero disables it.
	RequestsPerSecond int
	Burst             int
	// MaxConcurrent caps simultaneous text extractions.
	MaxConcurrent int
}

// NewRouter wires the bill routes under /api/v1.
func NewRouter(h *BillHandler, limits Limits, log zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(RequestLogger(log), Recovery(log))
	router.MaxMultipartMemory = 32 << 20

	router.GET("/health", h.Health)

	uploads := []gin.HandlerFunc{}
	if limits.RequestsPerSecond > 0 {
		uploads = append(uploads, RateLimit(rate.NewLimiter(rate.Limit(limits.RequestsPerSecond), max(limits.Burst, 1))))
	}
	if limits.MaxConcurrent > 0 {
		uploads = append(uploads, ConcurrencyLimit(semaphore.NewWeighted(int64(limits.MaxConcurrent))))
	}

	api := router.Group("/api/v1")
	{
		api.GET("/health", h.Health)
		api.POST("/parse-text", h.ParseText)

		bills := api.Group("/bills")
		{
			upload := bills.Group("", uploads...)
			upload.POST("/parse", h.ParseBill)
			upload.POST("", h.CreateBill)

			bills.GET("", h.ListBills)
			bills.DELETE("", h.ClearBills)
			bills.GET("/export", h.ExportBills)
			bills.GET("/:id", h.GetBill)
			bills.GET("/:id/pdf", h.BillPDF)
		}
	}

	return router
}
