package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"openair-backend/internal/airquality"
	"openair-backend/internal/ledger"
)

const defaultTransactionLimit = 10

// GetCurrentReading returns the latest polled snapshot.
func (h *Handler) GetCurrentReading(c *gin.Context) {
	snap, ok := h.dashboard.Snapshot()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no reading available yet"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GetTransactions handles GET /api/transactions?limit=N.
func (h *Handler) GetTransactions(c *gin.Context) {
	limit := defaultTransactionLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	txs, err := h.ledger.FetchTransactions(c.Request.Context(), limit)
	if err != nil {
		h.fetchError(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

// PostTransaction records a reading in the ledger.
func (h *Handler) PostTransaction(c *gin.Context) {
	var entry ledger.Entry
	if err := c.ShouldBindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	sig, err := h.ledger.Record(c.Request.Context(), entry)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidEntry) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.fetchError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"signature": sig})
}

// GetSensors returns the map sensors with their status.
func (h *Handler) GetSensors(c *gin.Context) {
	c.JSON(http.StatusOK, h.sensors.Sensors())
}

// GetBalance returns the session wallet's balance, or 204 without a wallet.
func (h *Handler) GetBalance(c *gin.Context) {
	wallet := h.gate(c).Wallet()
	if wallet == "" {
		c.Status(http.StatusNoContent)
		return
	}
	b, err := h.dashboard.Balance(c.Request.Context(), wallet)
	if err != nil {
		h.fetchError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type classifyResponse struct {
	Value  float64           `json:"value"`
	Metric airquality.Metric `json:"metric"`
	Band   airquality.Band   `json:"band"`
	Label  string            `json:"label"`
}

// Classify handles GET /api/classify?value=&metric=.
func (h *Handler) Classify(c *gin.Context) {
	value, err := strconv.ParseFloat(c.Query("value"), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value must be a number"})
		return
	}
	metric, err := airquality.ParseMetric(c.DefaultQuery("metric", string(airquality.MetricAQI)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	band, err := airquality.ClassifyMetric(value, metric)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, classifyResponse{Value: value, Metric: metric, Band: band, Label: band.Label()})
}
