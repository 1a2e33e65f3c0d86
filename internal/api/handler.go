package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"openair-backend/internal/access"
	"openair-backend/internal/dashboard"
	"openair-backend/internal/ledger"
	"openair-backend/internal/model"
	"openair-backend/internal/mw"
	"openair-backend/internal/source"
	"openair-backend/internal/store"
)

// Ledger lists and records sensor transactions.
type Ledger interface {
	source.Transactions
	Record(ctx context.Context, e ledger.Entry) (string, error)
}

// SensorLister returns the map sensors.
type SensorLister interface {
	Sensors() []model.SensorLocation
}

// Deps are the services the handlers read from.
type Deps struct {
	Store     store.Store
	Sessions  *access.Sessions
	Dashboard *dashboard.Service
	Ledger    Ledger
	Sensors   SensorLister
	WebPush   *webpush.Options
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	sessions  *access.Sessions
	dashboard *dashboard.Service
	ledger    Ledger
	sensors   SensorLister
	webpush   *webpush.Options
	logger    *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(d Deps, logger *zap.Logger) *Handler {
	return &Handler{
		store:     d.Store,
		sessions:  d.Sessions,
		dashboard: d.Dashboard,
		ledger:    d.Ledger,
		sensors:   d.Sensors,
		webpush:   d.WebPush,
		logger:    logger,
	}
}

func (h *Handler) gate(c *gin.Context) *access.Gate {
	return h.sessions.Get(c.Request.Context(), mw.ClientID(c))
}

// RequireView rejects clients that are neither in demo mode nor connected.
func (h *Handler) RequireView(c *gin.Context) {
	if !h.gate(c).CanView() {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "connect a wallet or enter demo mode"})
		return
	}
	c.Next()
}

// fetchError maps a data-source error to a response.
func (h *Handler) fetchError(c *gin.Context, err error) {
	if errors.Is(err, source.ErrFetchFailure) {
		h.logger.Warn("data source unavailable", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "data source unavailable"})
		return
	}
	h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
