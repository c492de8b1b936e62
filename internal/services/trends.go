package services

import (
	"context"
	"sync"
	"time"

	"github.com/glocktrack/glocktrack/internal/database"
	"github.com/glocktrack/glocktrack/internal/logger"
	"github.com/glocktrack/glocktrack/internal/store"
)

// chartLimit caps the dashboard chart to the most recent timestamp
// buckets. Full history goes through FilterByDateRange instead.
const chartLimit = 20

const dateLayout = "2006-01-02"

// AnnotatedReading is a reading with its classification attached
type AnnotatedReading struct {
	database.GlucoseLog
	Status     Status `json:"status,omitempty"`
	Classified bool   `json:"classified"`
}

// SeriesPoint is one chart bucket: all readings sharing an exact
// timestamp, pivoted by type. Types not logged at that instant stay nil.
type SeriesPoint struct {
	Timestamp    time.Time `json:"timestamp"`
	Fasting      *float64  `json:"fasting,omitempty"`
	PostPrandial *float64  `json:"postPrandial,omitempty"`
	Random       *float64  `json:"random,omitempty"`
}

// DashboardSnapshot is the derived dashboard view
type DashboardSnapshot struct {
	Latest      map[database.ReadingType]*AnnotatedReading `json:"latest"`
	Series      []SeriesPoint                              `json:"series"`
	GeneratedAt time.Time                                  `json:"generatedAt"`
}

// TrendService derives dashboard and history views from the reading
// collection. Run keeps a cached snapshot current by re-deriving on every
// store change event.
type TrendService struct {
	store *store.Store

	mu       sync.RWMutex
	snapshot DashboardSnapshot
}

// NewTrendService creates a new trend service
func NewTrendService(s *store.Store) *TrendService {
	return &TrendService{store: s}
}

// LatestByType returns the most recent reading of each type. With equal
// timestamps the most recently inserted wins.
func (t *TrendService) LatestByType(ctx context.Context) (map[database.ReadingType]*database.GlucoseLog, error) {
	logs, err := t.store.ListReadings(ctx)
	if err != nil {
		return nil, err
	}

	latest := make(map[database.ReadingType]*database.GlucoseLog, 3)
	for i := range logs {
		log := logs[i]
		if _, ok := latest[log.Type]; !ok {
			latest[log.Type] = &log
		}
	}
	return latest, nil
}

// ChartSeries returns readings pivoted by type, ascending by timestamp,
// one point per distinct timestamp, truncated to the most recent buckets.
func (t *TrendService) ChartSeries(ctx context.Context) ([]SeriesPoint, error) {
	logs, err := t.store.ListReadings(ctx)
	if err != nil {
		return nil, err
	}

	// ListReadings is newest first; walk backwards for ascending order.
	var series []SeriesPoint
	buckets := make(map[int64]int)
	for i := len(logs) - 1; i >= 0; i-- {
		log := logs[i]
		key := log.Timestamp.UnixNano()
		idx, ok := buckets[key]
		if !ok {
			series = append(series, SeriesPoint{Timestamp: log.Timestamp})
			idx = len(series) - 1
			buckets[key] = idx
		}
		value := log.Value
		switch log.Type {
		case database.ReadingFasting:
			series[idx].Fasting = &value
		case database.ReadingPostPrandial:
			series[idx].PostPrandial = &value
		case database.ReadingRandom:
			series[idx].Random = &value
		}
	}

	if len(series) > chartLimit {
		series = series[len(series)-chartLimit:]
	}
	return series, nil
}

// FilterByDateRange returns readings within [startOfDay(start),
// endOfDay(end)], newest first. Dates use the YYYY-MM-DD layout; if either
// bound fails to parse, or start comes after end, the whole collection is
// returned unfiltered. That fallback is deliberate: a broken filter widget
// must not hide history.
func (t *TrendService) FilterByDateRange(ctx context.Context, start, end string) ([]database.GlucoseLog, error) {
	logs, err := t.store.ListReadings(ctx)
	if err != nil {
		return nil, err
	}

	startDay, errStart := time.ParseInLocation(dateLayout, start, time.Local)
	endDay, errEnd := time.ParseInLocation(dateLayout, end, time.Local)
	if errStart != nil || errEnd != nil {
		return logs, nil
	}

	from := startDay
	to := endDay.AddDate(0, 0, 1).Add(-time.Nanosecond)
	// a reversed range is as invalid as an unparseable one
	if from.After(to) {
		return logs, nil
	}

	filtered := make([]database.GlucoseLog, 0, len(logs))
	for _, log := range logs {
		if log.Timestamp.Before(from) || log.Timestamp.After(to) {
			continue
		}
		filtered = append(filtered, log)
	}
	return filtered, nil
}

// History returns the date-filtered list with classifications attached
func (t *TrendService) History(ctx context.Context, start, end string) ([]AnnotatedReading, error) {
	logs, err := t.FilterByDateRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return t.annotate(ctx, logs)
}

// Dashboard derives a fresh snapshot of the latest-by-type summary and the
// chart series
func (t *TrendService) Dashboard(ctx context.Context) (DashboardSnapshot, error) {
	latest, err := t.LatestByType(ctx)
	if err != nil {
		return DashboardSnapshot{}, err
	}
	series, err := t.ChartSeries(ctx)
	if err != nil {
		return DashboardSnapshot{}, err
	}

	profile, err := t.store.ActiveProfile(ctx)
	if err != nil {
		return DashboardSnapshot{}, err
	}

	annotated := make(map[database.ReadingType]*AnnotatedReading, len(latest))
	for readingType, log := range latest {
		status, ok := Classify(log.Value, log.Type, profile)
		annotated[readingType] = &AnnotatedReading{GlucoseLog: *log, Status: status, Classified: ok}
	}

	return DashboardSnapshot{
		Latest:      annotated,
		Series:      series,
		GeneratedAt: time.Now(),
	}, nil
}

// Snapshot returns the last snapshot derived by Run
func (t *TrendService) Snapshot() DashboardSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshot
}

// Run subscribes to store changes and re-derives the dashboard snapshot on
// every event until ctx is done
func (t *TrendService) Run(ctx context.Context) {
	events, cancel := t.store.Notifier().Subscribe(ctx)
	defer cancel()

	t.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			t.refresh(ctx)
		}
	}
}

func (t *TrendService) refresh(ctx context.Context) {
	snapshot, err := t.Dashboard(ctx)
	if err != nil {
		logger.Error("Failed to refresh dashboard snapshot", "error", err)
		return
	}
	t.mu.Lock()
	t.snapshot = snapshot
	t.mu.Unlock()
}

func (t *TrendService) annotate(ctx context.Context, logs []database.GlucoseLog) ([]AnnotatedReading, error) {
	profile, err := t.store.ActiveProfile(ctx)
	if err != nil {
		return nil, err
	}

	annotated := make([]AnnotatedReading, 0, len(logs))
	for _, log := range logs {
		status, ok := Classify(log.Value, log.Type, profile)
		annotated = append(annotated, AnnotatedReading{GlucoseLog: log, Status: status, Classified: ok})
	}
	return annotated, nil
}
