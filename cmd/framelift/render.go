package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"framelift/internal/events"
	"framelift/internal/queue"
	"framelift/internal/scheduler"
)

// errorColumnWidth caps ffmpeg error text in the summary so one bad job does
// not blow up the whole table.
const errorColumnWidth = 60

// displayTable returns a writer preconfigured for framelift's terminal tables.
func displayTable(header ...any) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row(header))
	return tw
}

// consumeEvents pumps bus events into the renderer until ctx ends. It drains
// whatever is already buffered before waiting for more.
func consumeEvents(ctx context.Context, bus *events.Bus, renderer *eventRenderer) {
	var seq uint64
	for {
		batch, err := bus.Wait(ctx, seq)
		if err != nil {
			// Final drain so a cancelled consumer still shows the last events.
			for _, evt := range bus.Since(seq) {
				seq = evt.Seq
				renderer.handle(evt)
			}
			renderer.finishLine()
			return
		}
		for _, evt := range batch {
			seq = evt.Seq
			renderer.handle(evt)
		}
	}
}

// eventRenderer turns queue events into terminal output. On a TTY the
// current job's progress collapses into a single rewritten line; elsewhere
// only discrete events print.
type eventRenderer struct {
	out     io.Writer
	sched   *scheduler.Scheduler
	verbose bool
	tty     bool

	lineOpen   bool
	lastBucket int
}

func newEventRenderer(out io.Writer, sched *scheduler.Scheduler, verbose bool) *eventRenderer {
	tty := false
	if file, ok := out.(*os.File); ok {
		tty = isatty.IsTerminal(file.Fd())
	}
	return &eventRenderer{out: out, sched: sched, verbose: verbose, tty: tty, lastBucket: -1}
}

func (r *eventRenderer) handle(evt events.Event) {
	switch evt.Type {
	case events.TypeJobStarted:
		r.finishLine()
		r.lastBucket = -1
		fmt.Fprintf(r.out, "Processing %s\n", r.jobName(evt.JobID))
	case events.TypeJobProgress:
		r.renderProgress(evt)
	case events.TypeJobLog:
		if r.verbose {
			r.finishLine()
			fmt.Fprintf(r.out, "  | %s\n", evt.Line)
		}
	case events.TypeJobFinished:
		r.finishLine()
		r.renderFinished(evt)
	case events.TypeQueueIdle:
		r.finishLine()
	}
}

func (r *eventRenderer) renderProgress(evt events.Event) {
	if evt.Indeterminate {
		return
	}
	percent := int(evt.Fraction * 100)
	if r.tty {
		fmt.Fprintf(r.out, "\r  %3d%% %s", percent, strings.Repeat("#", percent/5))
		r.lineOpen = true
		return
	}
	// Without a TTY, print at most one line per 10% bucket.
	bucket := percent / 10
	if bucket > r.lastBucket {
		r.lastBucket = bucket
		fmt.Fprintf(r.out, "  %3d%%\n", percent)
	}
}

func (r *eventRenderer) renderFinished(evt events.Event) {
	name := r.jobName(evt.JobID)
	switch evt.Status {
	case queue.StatusSucceeded:
		fmt.Fprintf(r.out, "  done %s (%d output(s))\n", name, len(evt.Outputs))
	case queue.StatusSkipped:
		fmt.Fprintf(r.out, "  skipped %s\n", name)
	case queue.StatusCancelled:
		fmt.Fprintf(r.out, "  cancelled %s\n", name)
	default:
		fmt.Fprintf(r.out, "  FAILED %s: %s\n", name, evt.Error)
	}
}

// finishLine terminates a rewritten progress line before normal output.
func (r *eventRenderer) finishLine() {
	if r.lineOpen {
		fmt.Fprintln(r.out)
		r.lineOpen = false
	}
}

func (r *eventRenderer) jobName(jobID string) string {
	for _, job := range r.sched.Snapshot().Jobs {
		if job.ID == jobID {
			return filepath.Base(job.InputPath)
		}
	}
	return jobID
}

// renderSummary produces the end-of-run queue table plus a counts line.
func renderSummary(snapshot queue.Snapshot) string {
	tw := displayTable("FILE", "STATUS", "PROGRESS", "OUTPUTS / ERROR")
	for _, job := range snapshot.Jobs {
		detail := strings.Join(shortenPaths(job.OutputPaths), ", ")
		if job.ErrorMessage != "" {
			detail = job.ErrorMessage
		}
		tw.AppendRow(table.Row{
			filepath.Base(job.InputPath),
			string(job.Status),
			fmt.Sprintf("%d%%", int(job.Progress*100)),
			detail,
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Name: "PROGRESS", Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Name: "OUTPUTS / ERROR", WidthMax: errorColumnWidth},
	})

	counts := queue.CountJobs(snapshot.Jobs)
	summary := fmt.Sprintf("%d total: %d succeeded, %d failed, %d skipped, %d cancelled",
		counts.Total, counts.Succeeded, counts.Failed, counts.Skipped, counts.Cancelled)
	return tw.Render() + "\n" + summary
}

func shortenPaths(paths []string) []string {
	short := make([]string, 0, len(paths))
	for _, path := range paths {
		short = append(short, filepath.Base(path))
	}
	return short
}
