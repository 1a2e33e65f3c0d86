package dashboard

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"openair-backend/internal/airquality"
	"openair-backend/internal/metrics"
	"openair-backend/internal/model"
	"openair-backend/internal/notification"
	"openair-backend/internal/poller"
	"openair-backend/internal/source"
)

// ReadingSource fetches a reading and reports whether it is a fallback value.
type ReadingSource interface {
	Reading(ctx context.Context) (model.Reading, bool, error)
}

// WalletLister returns the wallets whose balance should be kept fresh.
type WalletLister interface {
	ConnectedWallets() []string
}

// Alerter receives band-worsening alerts.
type Alerter interface {
	Dispatch(alert notification.Alert) bool
}

// Bands holds the classification of every reading metric.
type Bands struct {
	AQI         airquality.Band `json:"aqi"`
	PM25        airquality.Band `json:"pm25"`
	Temperature airquality.Band `json:"temperature"`
	Humidity    airquality.Band `json:"humidity"`
}

// Snapshot is the latest polled reading.
type Snapshot struct {
	Reading   model.Reading `json:"reading"`
	Bands     Bands         `json:"bands"`
	FetchedAt time.Time     `json:"fetchedAt"`
	Fallback  bool          `json:"fallback"`
}

// Intervals are the refresh periods of the two pollers.
type Intervals struct {
	Readings time.Duration
	Balance  time.Duration
}

// Service owns the readings and balance pollers and the state they write.
// The snapshot is written only by the readings poller and tracked balances
// only by the balance poller.
type Service struct {
	readings ReadingSource
	balances source.Balances
	wallets  WalletLister
	alerter  Alerter
	now      func() time.Time
	logger   *zap.Logger

	readingsPoller *poller.Poller
	balancePoller  *poller.Poller

	snapMu   sync.RWMutex
	snapshot *Snapshot
	lastBand airquality.Band

	balMu   sync.RWMutex
	tracked map[string]model.Balance
}

// New wires a dashboard service. alerter and m may be nil.
func New(iv Intervals, readings ReadingSource, balances source.Balances, wallets WalletLister,
	alerter Alerter, logger *zap.Logger, m *metrics.Collector) *Service {
	s := &Service{
		readings: readings,
		balances: balances,
		wallets:  wallets,
		alerter:  alerter,
		now:      time.Now,
		logger:   logger,
		tracked:  make(map[string]model.Balance),
	}
	s.readingsPoller = poller.New("readings", iv.Readings, func(ctx context.Context) {
		if err := s.RefreshReading(ctx); err != nil {
			s.logger.Warn("reading refresh failed, keeping previous snapshot", zap.Error(err))
		}
	}, logger, m)
	s.balancePoller = poller.New("balance", iv.Balance, s.RefreshBalances, logger, m)
	return s
}

// Start launches both pollers. They run independently of each other.
func (s *Service) Start(ctx context.Context) {
	s.readingsPoller.Start(ctx)
	s.balancePoller.Start(ctx)
}

// Stop halts both pollers and waits for in-flight refreshes.
func (s *Service) Stop() {
	s.readingsPoller.Stop()
	s.balancePoller.Stop()
}

// RefreshReading polls the reading source once. On error the previous snapshot is kept.
func (s *Service) RefreshReading(ctx context.Context) error {
	r, fallback, err := s.readings.Reading(ctx)
	if err != nil {
		return err
	}

	snap := &Snapshot{
		Reading:   r,
		Bands:     classify(r),
		FetchedAt: s.now().UTC(),
		Fallback:  fallback,
	}

	s.snapMu.Lock()
	prev := s.lastBand
	s.snapshot = snap
	// Substituted values do not move the alert baseline.
	if !fallback {
		s.lastBand = snap.Bands.AQI
	}
	s.snapMu.Unlock()

	if !fallback && prev != "" && snap.Bands.AQI.Worse(prev) && snap.Bands.AQI.Alerting() && s.alerter != nil {
		s.logger.Info("air quality band worsened",
			zap.String("from", string(prev)), zap.String("to", string(snap.Bands.AQI)), zap.Float64("aqi", r.AQI))
		s.alerter.Dispatch(notification.Alert{Previous: prev, Band: snap.Bands.AQI, AQI: r.AQI, At: snap.FetchedAt})
	}
	return nil
}

// Snapshot returns the latest reading, if one has been polled yet.
func (s *Service) Snapshot() (Snapshot, bool) {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	if s.snapshot == nil {
		return Snapshot{}, false
	}
	return *s.snapshot, true
}

// RefreshBalances polls the balance of every connected wallet and forgets
// wallets that are no longer connected.
func (s *Service) RefreshBalances(ctx context.Context) {
	wallets := s.wallets.ConnectedWallets()
	fresh := make(map[string]model.Balance, len(wallets))
	for _, w := range wallets {
		b, err := s.balances.FetchBalance(ctx, w)
		if err != nil {
			s.logger.Warn("balance refresh failed", zap.String("wallet", w), zap.Error(err))
			if old, ok := s.trackedBalance(w); ok {
				fresh[w] = old
			}
			continue
		}
		fresh[w] = b
	}

	s.balMu.Lock()
	s.tracked = fresh
	s.balMu.Unlock()
}

// Balance returns the tracked balance of owner. A wallet the balance poller
// has not seen yet is fetched directly; only the poller writes tracked state.
func (s *Service) Balance(ctx context.Context, owner string) (model.Balance, error) {
	if b, ok := s.trackedBalance(owner); ok {
		return b, nil
	}
	return s.balances.FetchBalance(ctx, owner)
}

func (s *Service) trackedBalance(owner string) (model.Balance, bool) {
	s.balMu.RLock()
	defer s.balMu.RUnlock()
	b, ok := s.tracked[owner]
	return b, ok
}

func classify(r model.Reading) Bands {
	return Bands{
		AQI:         airquality.Classify(r.AQI, airquality.MetricAQI),
		PM25:        airquality.Classify(r.PM25, airquality.MetricPM25),
		Temperature: airquality.BandFor(r.Temperature, airquality.MetricTemperature),
		Humidity:    airquality.BandFor(r.Humidity, airquality.MetricHumidity),
	}
}
