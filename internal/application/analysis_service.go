package application

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/bnema/keepster-cli/internal/domain"
	"github.com/bnema/keepster-cli/internal/ports"
)

const DefaultAnalysisInterval = 30 * time.Second

type AnalysisResult struct {
	Duplicates []domain.DuplicateGroup
	Blurry     []domain.BlurResult
}

// AnalysisService annotates a batch of items in the background. Results are
// advisory and never change the queue.
type AnalysisService struct {
	clock    ports.Clock
	interval time.Duration
	logger   *slog.Logger

	running atomic.Bool
	tasks   conc.WaitGroup

	mu      sync.Mutex
	lastRun time.Time
}

func NewAnalysisService(clock ports.Clock, interval time.Duration, logger *slog.Logger) *AnalysisService {
	if interval <= 0 {
		interval = DefaultAnalysisInterval
	}

	return &AnalysisService{
		clock:    clockOrSystem(clock),
		interval: interval,
		logger:   loggerOrDiscard(logger).With("component", "analysis"),
	}
}

// Start analyzes items on a background goroutine and reports through
// onResult. It returns false without doing anything when a run is active or
// the previous run started less than one interval ago.
func (s *AnalysisService) Start(items []domain.Item, onResult func(AnalysisResult)) bool {
	now := s.clock.Now()

	s.mu.Lock()
	if !s.lastRun.IsZero() && now.Sub(s.lastRun) < s.interval {
		s.mu.Unlock()
		return false
	}
	if !s.running.CompareAndSwap(false, true) {
		s.mu.Unlock()
		return false
	}
	s.lastRun = now
	s.mu.Unlock()

	snapshot := append([]domain.Item(nil), items...)
	s.tasks.Go(func() {
		defer s.running.Store(false)

		result := AnalysisResult{
			Duplicates: domain.DetectDuplicateGroups(snapshot),
			Blurry:     domain.DetectBlurryItems(snapshot),
		}
		s.logger.Debug("analysis complete", "items", len(snapshot), "duplicate_groups", len(result.Duplicates))
		if onResult != nil {
			onResult(result)
		}
	})
	return true
}

func (s *AnalysisService) Running() bool {
	return s.running.Load()
}

func (s *AnalysisService) Wait() {
	s.tasks.Wait()
}
