package ports

import "time"

type Decision string

const (
	DecisionKeep   Decision = "keep"
	DecisionDelete Decision = "delete"
	DecisionSkip   Decision = "skip"
	DecisionUndo   Decision = "undo"
)

type Metrics interface {
	ObserveDecision(decision Decision)
	ObservePageFetch(fetched, appended int, elapsed time.Duration, err error)
	ObserveMembershipBuild(size int, elapsed time.Duration, err error)
	ObserveCommit()
	ObserveFlush(size int, elapsed time.Duration, err error)
	SetQueueLength(n int)
}

type NopMetrics struct{}

var _ Metrics = NopMetrics{}

func (NopMetrics) ObserveDecision(Decision)                         {}
func (NopMetrics) ObservePageFetch(int, int, time.Duration, error)   {}
func (NopMetrics) ObserveMembershipBuild(int, time.Duration, error) {}
func (NopMetrics) ObserveCommit()                                   {}
func (NopMetrics) ObserveFlush(int, time.Duration, error)           {}
func (NopMetrics) SetQueueLength(int)                               {}
