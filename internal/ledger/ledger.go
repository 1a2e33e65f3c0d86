package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"openair-backend/internal/model"
	"openair-backend/internal/parse"
	"openair-backend/internal/source"
)

// DefaultCapacity bounds the number of recorded entries kept in memory.
const DefaultCapacity = 500

// ErrInvalidEntry marks entries rejected before recording.
var ErrInvalidEntry = errors.New("invalid ledger entry")

// Entry is a sensor reading submitted for recording.
type Entry struct {
	SensorID    string  `json:"sensorId" validate:"required"`
	AQI         float64 `json:"aqi" validate:"gte=0"`
	PM25        float64 `json:"pm25" validate:"gte=0"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity" validate:"gte=0,lte=100"`
}

var validate = validator.New()

// Simulator stands in for an on-chain ledger. Recorded entries are chained by
// hash and merged ahead of the base transaction source.
type Simulator struct {
	base     source.Transactions
	capacity int
	now      func() time.Time
	logger   *zap.Logger

	mu       sync.RWMutex
	recorded []model.Transaction // newest last
	prevHash string
}

// New creates a simulator over base.
func New(base source.Transactions, logger *zap.Logger) *Simulator {
	return &Simulator{
		base:     base,
		capacity: DefaultCapacity,
		now:      time.Now,
		logger:   logger,
	}
}

// Record appends a confirmed transaction for e and returns its signature.
func (s *Simulator) Record(ctx context.Context, e Entry) (string, error) {
	if err := validate.Struct(e); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}
	id, err := parse.ParseSensorID(e.SensorID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}
	e.SensorID = id.String()
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UTC()
	sig, err := signature(s.prevHash, ts, e)
	if err != nil {
		return "", err
	}
	s.prevHash = sig

	s.recorded = append(s.recorded, model.Transaction{
		Signature: sig,
		Timestamp: ts,
		SensorID:  e.SensorID,
		AQI:       e.AQI,
		PM25:      e.PM25,
		Confirmed: true,
	})
	if len(s.recorded) > s.capacity {
		s.recorded = s.recorded[len(s.recorded)-s.capacity:]
	}

	s.logger.Info("recorded air quality data",
		zap.String("signature", sig),
		zap.String("sensor_id", e.SensorID),
		zap.Float64("aqi", e.AQI),
		zap.Float64("pm25", e.PM25))
	return sig, nil
}

// FetchTransactions implements source.Transactions. Recorded entries and the
// base set are merged newest first and truncated to limit.
func (s *Simulator) FetchTransactions(ctx context.Context, limit int) ([]model.Transaction, error) {
	if limit <= 0 {
		return []model.Transaction{}, nil
	}
	base, err := s.base.FetchTransactions(ctx, limit)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	merged := make([]model.Transaction, 0, len(base)+len(s.recorded))
	merged = append(merged, s.recorded...)
	s.mu.RUnlock()

	seen := make(map[string]struct{}, len(merged))
	for _, tx := range merged {
		seen[tx.Signature] = struct{}{}
	}
	for _, tx := range base {
		if _, dup := seen[tx.Signature]; dup {
			continue
		}
		merged = append(merged, tx)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.After(merged[j].Timestamp)
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// Len returns the number of recorded entries.
func (s *Simulator) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recorded)
}

func signature(prevHash string, ts time.Time, e Entry) (string, error) {
	payload, err := json.Marshal(struct {
		Nonce     string    `json:"nonce"`
		PrevHash  string    `json:"prevHash"`
		Timestamp time.Time `json:"timestamp"`
		Entry     Entry     `json:"entry"`
	}{uuid.NewString(), prevHash, ts, e})
	if err != nil {
		return "", fmt.Errorf("failed to encode ledger entry: %w", err)
	}
	h := sha256.Sum256(payload)
	return hex.EncodeToString(h[:]), nil
}
