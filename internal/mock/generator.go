package mock

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"openair-backend/internal/airquality"
	"openair-backend/internal/model"
)

// TransactionCount is the size of the generated transaction set.
const TransactionCount = 10

// Generator produces synthetic dashboard data. Every timestamp it emits is an
// offset from the clock at call time, never a fixed wall-clock value.
type Generator struct {
	now    func() time.Time
	jitter float64

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithJitter perturbs current values by up to ±fraction of their base value.
func WithJitter(fraction float64, seed uint64) Option {
	return func(g *Generator) {
		g.jitter = math.Max(0, fraction)
		g.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// NewGenerator returns a generator. Without options it is deterministic apart from the clock.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Reading returns the current snapshot with a 24 hour history ending now.
func (g *Generator) Reading() model.Reading {
	now := g.now().UTC()

	history := make([]model.HistoricalPoint, len(historicalFixture))
	start := now.Add(-time.Duration(len(historicalFixture)-1) * historicalStep)
	for i, h := range historicalFixture {
		history[i] = model.HistoricalPoint{
			Timestamp: start.Add(time.Duration(i) * historicalStep),
			AQI:       h.aqi,
			PM25:      h.pm25,
		}
	}

	return model.Reading{
		AQI:            math.Round(g.perturb(currentAQI)),
		PM25:           round1(g.perturb(currentPM25)),
		Temperature:    round1(g.perturb(currentTemperature)),
		Humidity:       math.Min(100, round1(g.perturb(currentHumidity))),
		LastUpdated:    now,
		HistoricalData: history,
	}
}

// Transactions returns up to limit records, newest first. A limit at or below
// zero yields an empty slice; a limit above the generated set yields all of it.
func (g *Generator) Transactions(limit int) []model.Transaction {
	if limit <= 0 {
		return []model.Transaction{}
	}
	if limit > len(transactionFixture) {
		limit = len(transactionFixture)
	}

	newest := g.now().UTC().Add(-newestTransactionAge).Truncate(time.Second)
	txs := make([]model.Transaction, 0, limit)
	for _, f := range transactionFixture[:limit] {
		txs = append(txs, model.Transaction{
			Signature: f.signature,
			Timestamp: newest.Add(-f.age),
			SensorID:  f.sensorID,
			AQI:       f.aqi,
			PM25:      f.pm25,
			Confirmed: true,
		})
	}
	return txs
}

// Sensors returns the map sensors with their classified status.
func (g *Generator) Sensors() []model.SensorLocation {
	out := make([]model.SensorLocation, len(sensorFixture))
	for i, s := range sensorFixture {
		out[i] = model.SensorLocation{
			ID:     s.id,
			Name:   s.name,
			Lat:    s.lat,
			Lng:    s.lng,
			AQI:    s.aqi,
			Status: airquality.Classify(s.aqi, airquality.MetricAQI),
		}
	}
	return out
}

// Balance returns the simulated token balance of owner.
func (g *Generator) Balance(owner string) model.Balance {
	return model.Balance{Owner: owner, Amount: MockBalance, Symbol: model.TokenSymbol}
}

func (g *Generator) perturb(v float64) float64 {
	if g.jitter == 0 || g.rng == nil {
		return v
	}
	g.mu.Lock()
	offset := (g.rng.Float64()*2 - 1) * g.jitter * v
	g.mu.Unlock()
	return math.Max(0, v+offset)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
