package engine

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// ProgressUpdate carries the progress state of one computation slot. It is
// sent over a channel from the engine to the user interface. Comparison
// mode runs one slot per series variant; single runs use slot zero.
type ProgressUpdate struct {
	// Slot identifies which concurrent computation this update belongs to.
	Slot int
	// Value is the normalized progress, 0.0 to 1.0.
	Value float64
}

// ProgressReporter is the callback workers report through. Implementations
// must be safe for concurrent use and must not block.
type ProgressReporter func(progress float64)

// ProgressReportThreshold is the minimum progress delta the throttling
// observers report; finer-grained updates are coalesced.
const ProgressReportThreshold = 0.01

// ProgressObserver receives progress notifications from computations.
// Implementations must be safe for concurrent use: updates arrive from
// worker goroutines.
type ProgressObserver interface {
	// Update is called when the progress of a computation slot changes.
	Update(slot int, progress float64)
}

// ProgressSubject fans progress notifications out to registered observers.
// The zero value is ready to use.
type ProgressSubject struct {
	mu        sync.RWMutex
	observers []ProgressObserver
}

// NewProgressSubject creates an empty subject.
func NewProgressSubject() *ProgressSubject {
	return &ProgressSubject{}
}

// Register adds an observer to the notification list.
func (s *ProgressSubject) Register(obs ProgressObserver) {
	if obs == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, obs)
}

// Unregister removes a previously registered observer.
func (s *ProgressSubject) Unregister(obs ProgressObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.observers {
		if o == obs {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

// Notify delivers a progress update to every registered observer.
func (s *ProgressSubject) Notify(slot int, progress float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, obs := range s.observers {
		obs.Update(slot, progress)
	}
}

// ObserverCount returns the number of registered observers.
func (s *ProgressSubject) ObserverCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observers)
}

// AsProgressReporter adapts the subject to the reporter callback the
// engine expects, binding the given slot.
func (s *ProgressSubject) AsProgressReporter(slot int) ProgressReporter {
	return func(progress float64) {
		s.Notify(slot, progress)
	}
}

// ChannelObserver forwards progress updates to a channel, typically
// consumed by a terminal progress display. Sends never block: if the
// consumer lags, updates are dropped rather than stalling a worker.
type ChannelObserver struct {
	ch chan<- ProgressUpdate
}

// NewChannelObserver creates an observer forwarding to ch.
func NewChannelObserver(ch chan<- ProgressUpdate) *ChannelObserver {
	return &ChannelObserver{ch: ch}
}

// Update implements ProgressObserver.
func (o *ChannelObserver) Update(slot int, progress float64) {
	if progress > 1.0 {
		progress = 1.0
	}
	select {
	case o.ch <- ProgressUpdate{Slot: slot, Value: progress}:
	default:
	}
}

// LoggingObserver writes throttled progress lines to a structured logger.
// Updates closer than the threshold to the previously logged value are
// skipped, except the terminal 1.0.
type LoggingObserver struct {
	logger    zerolog.Logger
	threshold float64

	mu      sync.Mutex
	lastLog map[int]float64
}

// NewLoggingObserver creates an observer logging through logger at debug
// level. A non-positive threshold falls back to 0.1.
func NewLoggingObserver(logger zerolog.Logger, threshold float64) *LoggingObserver {
	if threshold <= 0 {
		threshold = 0.1
	}
	return &LoggingObserver{
		logger:    logger,
		threshold: threshold,
		lastLog:   make(map[int]float64),
	}
}

// Update implements ProgressObserver.
func (o *LoggingObserver) Update(slot int, progress float64) {
	o.mu.Lock()
	last, seen := o.lastLog[slot]
	if seen && progress < 1.0 && progress-last < o.threshold {
		o.mu.Unlock()
		return
	}
	o.lastLog[slot] = progress
	o.mu.Unlock()

	o.logger.Debug().
		Int("slot", slot).
		Float64("progress", progress).
		Int("percent", int(progress*100)).
		Msg("computation progress")
}

var computationProgress = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "picalc_computation_progress",
	Help: "Progress of in-flight Pi computations, from 0 to 1",
}, []string{"slot"})

// MetricsObserver exports progress as a Prometheus gauge labeled by slot.
type MetricsObserver struct{}

// NewMetricsObserver creates a gauge-backed observer.
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// Update implements ProgressObserver.
func (o *MetricsObserver) Update(slot int, progress float64) {
	computationProgress.WithLabelValues(strconv.Itoa(slot)).Set(progress)
}

// NoOpObserver discards every update. It stands in where a nil observer
// would otherwise need checking.
type NoOpObserver struct{}

// Update implements ProgressObserver.
func (NoOpObserver) Update(int, float64) {}
