package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bnema/keepster-cli/internal/domain"
)

// lineEngine is what the line-mode review needs from the session engine.
type lineEngine interface {
	State() domain.SessionState
	LoadInitial(ctx context.Context, target int) error
	LoadMore(ctx context.Context) error
	MarkKept(item domain.Item) error
	MarkDeleted(item domain.Item) error
	Skip(item domain.Item) error
	Undo() (domain.Item, bool)
	KeepInCollection(ctx context.Context, item domain.Item, collection domain.CollectionID) error
	Finish(ctx context.Context) domain.SessionSummary
}

type lineReviewOptions struct {
	Target     int
	Collection domain.Collection
	Now        func() time.Time
}

type lineCommand int

const (
	lineUnknown lineCommand = iota
	lineKeep
	lineDelete
	lineSkip
	lineUndo
	lineCollect
	lineRetry
	lineFinish
)

var lineCommands = map[string]lineCommand{
	"keep": lineKeep, "k": lineKeep,
	"delete": lineDelete, "d": lineDelete,
	"skip": lineSkip, "s": lineSkip,
	"undo": lineUndo, "u": lineUndo,
	"collect": lineCollect, "c": lineCollect,
	"retry": lineRetry, "r": lineRetry,
	"finish": lineFinish, "q": lineFinish, "quit": lineFinish,
}

func parseLineCommand(line string) lineCommand {
	return lineCommands[strings.ToLower(strings.TrimSpace(line))]
}

// runLineReview drives a session from newline separated commands. End of
// input finishes the session.
func runLineReview(ctx context.Context, engine lineEngine, in io.Reader, out io.Writer, opts lineReviewOptions) (domain.SessionSummary, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	finish := func() domain.SessionSummary {
		return engine.Finish(context.WithoutCancel(ctx))
	}

	if err := engine.LoadInitial(ctx, opts.Target); err != nil {
		fmt.Fprintf(out, "%s (retry or finish)\n", engine.State().Error)
	}

	scanner := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return finish(), nil
		}
		printLinePrompt(out, engine.State(), opts)

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				summary := finish()
				return summary, fmt.Errorf("read review commands: %w", err)
			}
			return finish(), nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		command := parseLineCommand(line)
		if command == lineFinish {
			return finish(), nil
		}
		applyLineCommand(ctx, engine, out, command, line, opts)

		if err := engine.LoadMore(ctx); err != nil {
			fmt.Fprintf(out, "could not fetch more photos: %v\n", err)
		}
	}
}

func applyLineCommand(ctx context.Context, engine lineEngine, out io.Writer, command lineCommand, line string, opts lineReviewOptions) {
	state := engine.State()
	head, hasHead := state.Head()

	switch command {
	case lineUndo:
		if item, ok := engine.Undo(); ok {
			fmt.Fprintf(out, "restored %s\n", itemName(item))
		} else {
			fmt.Fprintln(out, "nothing to undo")
		}
		return
	case lineRetry:
		if err := engine.LoadInitial(ctx, opts.Target); err != nil {
			fmt.Fprintln(out, engine.State().Error)
		}
		return
	case lineUnknown:
		fmt.Fprintf(out, "unknown command %q\n", line)
		return
	}

	if !hasHead {
		fmt.Fprintln(out, "no photo to act on")
		return
	}

	var err error
	switch command {
	case lineKeep:
		err = engine.MarkKept(head)
	case lineDelete:
		err = engine.MarkDeleted(head)
		if err == nil {
			if action := engine.State().LastAction; action != nil {
				fmt.Fprintf(out, "deleting %s in %ds, undo to restore\n",
					itemName(head), int(action.Remaining(opts.Now()).Round(time.Second).Seconds()))
			}
		}
	case lineSkip:
		err = engine.Skip(head)
	case lineCollect:
		if opts.Collection.ID == "" {
			fmt.Fprintln(out, "no collection selected; pass --collection")
			return
		}
		err = engine.KeepInCollection(ctx, head, opts.Collection.ID)
		if err == nil {
			fmt.Fprintf(out, "kept %s in %s\n", itemName(head), opts.Collection.DisplayTitle())
		}
	}
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
	}
}

func printLinePrompt(out io.Writer, state domain.SessionState, opts lineReviewOptions) {
	status := fmt.Sprintf("kept %d | deleted %d | queued %d | %s",
		state.KeptCount, state.DeletedCount, len(state.Queue),
		domain.FormatDuration(state.Elapsed(opts.Now())))

	head, ok := state.Head()
	if !ok {
		if state.Error != "" {
			fmt.Fprintf(out, "[%s] %s\n", status, state.Error)
			return
		}
		fmt.Fprintf(out, "[%s] all caught up, finish to end\n", status)
		return
	}
	fmt.Fprintf(out, "[%s] %s\n", status, describeItem(head))
}

func describeItem(item domain.Item) string {
	parts := []string{itemName(item)}
	if !item.CreatedAt.IsZero() {
		parts = append(parts, item.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	if item.Width > 0 && item.Height > 0 {
		parts = append(parts, fmt.Sprintf("%dx%d", item.Width, item.Height))
	}
	if item.SizeBytes > 0 {
		parts = append(parts, humanize.Bytes(uint64(item.SizeBytes)))
	}
	parts = append(parts, "id "+string(item.ID))
	return strings.Join(parts, "  ")
}

func itemName(item domain.Item) string {
	if item.Filename != "" {
		return item.Filename
	}
	return string(item.ID)
}
