package domain

import (
	"fmt"
	"time"
)

type SessionStatus string

const (
	StatusIdle    SessionStatus = "idle"
	StatusRunning SessionStatus = "running"
	StatusSummary SessionStatus = "summary"
)

type ActionKind string

const ActionDelete ActionKind = "delete"

// LastAction is the single outstanding deferred action of a session.
type LastAction struct {
	Kind      ActionKind
	Item      Item
	ExpiresAt time.Time
}

func (a LastAction) Remaining(now time.Time) time.Duration {
	remaining := a.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

type SessionState struct {
	ID                 string
	Status             SessionStatus
	Queue              []Item
	KeptCount          int
	DeletedCount       int
	StartedAt          time.Time
	EndedAt            time.Time
	LastAction         *LastAction
	PendingCommits     []ItemID
	Loading            bool
	ScanningMembership bool
	Error              string
	HasMore            bool
	Cursor             string
}

func NewIdleState() SessionState {
	return SessionState{Status: StatusIdle, HasMore: true}
}

// Reviewed counts items that left the queue through keep or delete.
func (s SessionState) Reviewed() int {
	return s.KeptCount + s.DeletedCount
}

func (s SessionState) Head() (Item, bool) {
	if len(s.Queue) == 0 {
		return Item{}, false
	}
	return s.Queue[0], true
}

func (s SessionState) Elapsed(now time.Time) time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	end := s.EndedAt
	if end.IsZero() {
		end = now
	}
	if end.Before(s.StartedAt) {
		return 0
	}
	return end.Sub(s.StartedAt)
}

func (s SessionState) Summary() SessionSummary {
	return SessionSummary{
		ID:           s.ID,
		StartedAt:    s.StartedAt,
		EndedAt:      s.EndedAt,
		KeptCount:    s.KeptCount,
		DeletedCount: s.DeletedCount,
	}
}

// Clone returns a copy that shares no slices or pointers with s.
func (s SessionState) Clone() SessionState {
	out := s
	if s.Queue != nil {
		out.Queue = append([]Item(nil), s.Queue...)
	}
	if s.PendingCommits != nil {
		out.PendingCommits = append([]ItemID(nil), s.PendingCommits...)
	}
	if s.LastAction != nil {
		action := *s.LastAction
		out.LastAction = &action
	}
	return out
}

type SessionSummary struct {
	ID           string
	StartedAt    time.Time
	EndedAt      time.Time
	KeptCount    int
	DeletedCount int
}

func (s SessionSummary) Duration() time.Duration {
	if s.StartedAt.IsZero() || s.EndedAt.Before(s.StartedAt) {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// FormatDuration renders d as "<minutes>m <seconds>s", flooring to whole seconds.
func FormatDuration(d time.Duration) string {
	total := int64(d / time.Second)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%dm %ds", total/60, total%60)
}

// FailedBatch is a batched delete whose external call failed.
type FailedBatch struct {
	ID       string
	ItemIDs  []ItemID
	Error    string
	FailedAt time.Time
}
