package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/keepster-cli/internal/adapters/library/sqlite"
)

type fakeImporter struct {
	steps  []sqlite.ImportResult
	result sqlite.ImportResult
	err    error
}

func (f fakeImporter) ImportDir(_ context.Context, _ string, progress sqlite.ImportProgress) (sqlite.ImportResult, error) {
	for _, step := range f.steps {
		progress(step)
	}
	return f.result, f.err
}

func TestImportModelShowsRunningTotals(t *testing.T) {
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	now := started
	model := newImportModel("/photos", nil, func() time.Time { return now })

	assert.Contains(t, model.View(), "Importing photos from /photos")
	assert.NotContains(t, model.View(), "scanned")

	now = started.Add(75 * time.Second)
	updated, cmd := model.Update(importProgressMsg{totals: sqlite.ImportResult{Scanned: 1204, Added: 310, Invalid: 2}})
	assert.Nil(t, cmd)

	view := updated.View()
	assert.Contains(t, view, "1,204 scanned")
	assert.Contains(t, view, "310 new")
	assert.Contains(t, view, "2 unreadable")
	assert.Contains(t, view, "1m 15s")
}

func TestImportModelQuitsWithResult(t *testing.T) {
	model := newImportModel("/photos", nil, time.Now)
	failure := errors.New("disk gone")

	updated, cmd := model.Update(importDoneMsg{result: sqlite.ImportResult{Scanned: 3, Added: 1}, err: failure})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	final := updated.(importModel)
	assert.Empty(t, final.View())
	assert.Equal(t, 1, final.result.Added)
	assert.ErrorIs(t, final.err, failure)
}

func TestImportTotalsOmitsUnreadableWhenZero(t *testing.T) {
	assert.Equal(t, "5 scanned · 5 new · 0m 0s", importTotals(sqlite.ImportResult{Scanned: 5, Added: 5}, 0))
}

func TestRunImportReturnsImporterResult(t *testing.T) {
	importer := fakeImporter{
		steps:  []sqlite.ImportResult{{Scanned: 1}, {Scanned: 2, Added: 2}},
		result: sqlite.ImportResult{Scanned: 2, Added: 2},
	}

	result, err := runImport(context.Background(), &bytes.Buffer{}, "/photos", importer)
	require.NoError(t, err)
	assert.Equal(t, sqlite.ImportResult{Scanned: 2, Added: 2}, result)

	importer.err = errors.New("walk failed")
	_, err = runImport(context.Background(), &bytes.Buffer{}, "/photos", importer)
	assert.EqualError(t, err, "walk failed")
}
