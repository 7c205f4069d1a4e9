package cli

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"pathwatch/internal/core/watcher"
	"pathwatch/internal/data/journal"
)

// Printer writes one "id kind path" line per event.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) Sink(event watcher.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := fmt.Fprintln(p.w, event.String()); err != nil {
		slog.Warn("failed to print event", "error", err)
	}
}

func printEntries(w io.Writer, entries []journal.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "no journaled events")
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s  %-8s %6d  %s\n",
			e.ObservedAt.Local().Format("2006-01-02 15:04:05"), e.Kind, e.EventID, e.Path); err != nil {
			return err
		}
	}
	return nil
}

func printCounts(w io.Writer, counts map[string]int) error {
	for _, kind := range watcher.AllKinds() {
		if n, ok := counts[kind.String()]; ok {
			if _, err := fmt.Fprintf(w, "%-8s %d\n", kind, n); err != nil {
				return err
			}
		}
	}
	return nil
}
