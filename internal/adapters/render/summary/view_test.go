package summary

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/keepster-cli/internal/domain"
)

func TestRenderSingleSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	started := now.Add(-3 * time.Hour)

	output, err := Render([]domain.SessionSummary{
		{
			ID:           "3f2a9c4e-1111-2222-3333-444455556666",
			StartedAt:    started,
			EndedAt:      started.Add(4*time.Minute + 7*time.Second),
			KeptCount:    30,
			DeletedCount: 10,
		},
	}, RenderOptions{Now: now})

	require.NoError(t, err)
	assert.Contains(t, output, "sessions: 1")
	assert.Contains(t, output, "Session 3f2a9c4e")
	assert.Contains(t, output, "time: 4m 7s")
	assert.Contains(t, output, "30 kept")
	assert.Contains(t, output, "10 deleted")
	assert.Contains(t, output, "(40 total)")
	assert.Contains(t, output, "ago")
	assert.Contains(t, output, "pace: 9.7 photos/min")
	assert.NotContains(t, output, "failed")
}

func TestRenderEmptyHistory(t *testing.T) {
	output, err := Render(nil, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "Review Sessions")
	assert.Contains(t, output, "sessions: 0")
	assert.Contains(t, output, "No sessions recorded yet.")
}

func TestRenderCustomTitleAndFailures(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	output, err := Render([]domain.SessionSummary{
		{ID: "abc", StartedAt: start, EndedAt: start.Add(20 * time.Second), KeptCount: 1},
	}, RenderOptions{Title: "Session complete", PendingFailures: 2})

	require.NoError(t, err)
	assert.Contains(t, output, "Session complete")
	assert.Contains(t, output, "2 delete batches failed")
	assert.Contains(t, output, "Session abc (10:00 on 01 Mar)")
	assert.Contains(t, output, "time: 0m 20s")
	assert.NotContains(t, output, "pace:")
}

func TestRenderSplitBar(t *testing.T) {
	s := newStyles()

	tests := []struct {
		name    string
		kept    int
		deleted int
		width   int
		want    string
	}{
		{name: "empty session", width: 4, want: "[----]"},
		{name: "all kept", kept: 3, width: 4, want: "[====]"},
		{name: "even split", kept: 2, deleted: 2, width: 4, want: "[==xx]"},
		{name: "zero width", kept: 1, width: 0, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripANSI(renderSplitBar(tt.kept, tt.deleted, tt.width, s)))
		})
	}
}

func stripANSI(in string) string {
	out := make([]rune, 0, len(in))
	escaped := false
	for _, r := range in {
		switch {
		case r == '\x1b':
			escaped = true
		case escaped && r == 'm':
			escaped = false
		case escaped:
		default:
			out = append(out, r)
		}
	}
	return string(out)
}
