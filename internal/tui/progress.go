// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

// Package tui implements the default terminal progress.Display for the
// install subcommand: one progress bar per dataset, driven directly off
// the orchestrator's message stream. Adapted from the teacher's
// LiveRenderer (internal/tui/progress.go), which renders one row per
// in-flight file download; UNDR tracks one bar per dataset's directory
// completion instead (IndexLoaded grows a bar's total, DirectoryScanned
// advances it), since that is the unit the orchestrator itself accounts
// by (orchestrator.IndexStatus). Built on the teacher's own
// cheggaaa/pb/v3 and fatih/color dependencies rather than the teacher's
// hand-rolled ANSI table, since pb/v3 already renders a multi-bar pool.
package tui

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/cheggaaa/pb/v3"
	"github.com/fatih/color"

	"undr/internal/indextask"
	"undr/internal/maptask"
	"undr/internal/taskpool"
)

// Renderer is the default progress.Display: a pool of per-dataset bars plus
// colorized lines for errors and Doi discoveries.
type Renderer struct {
	mu      sync.Mutex
	pool    *pb.Pool
	bars    map[string]*pb.ProgressBar
	order   []string
	errFg   *color.Color
	okFg    *color.Color
	doiFg   *color.Color
	started bool
}

// NewRenderer builds a Renderer ready to Handle messages.
func NewRenderer() *Renderer {
	return &Renderer{
		bars: make(map[string]*pb.ProgressBar),
		errFg: color.New(color.FgRed, color.Bold),
		okFg:  color.New(color.FgGreen),
		doiFg: color.New(color.FgCyan),
	}
}

// Handle implements progress.Display.
func (r *Renderer) Handle(message interface{}) {
	switch m := message.(type) {
	case indextask.IndexLoaded:
		bar := r.barFor(m.PathId.Root())
		bar.SetTotal(bar.Total() + int64(m.Children))

	case indextask.DirectoryScanned:
		bar := r.barFor(m.PathId.Root())
		bar.Increment()

	case indextask.Doi:
		r.doiFg.Fprintf(os.Stderr, "doi: %s -> %s\n", m.PathId.String(), m.Value)

	case maptask.Progress:
		// Bars track directory indexing (DirectoryScanned) only; per-file
		// map completion is not rendered.

	case *taskpool.WorkerException:
		r.errFg.Fprintf(os.Stderr, "worker error: %v\n", m.Err)
	}
}

// Prepare creates (but does not start) a bar for each dataset name, so
// Start can render the whole pool before the first message arrives.
func (r *Renderer) Prepare(datasets []string) {
	for _, name := range datasets {
		r.barFor(name)
	}
}

func (r *Renderer) barFor(dataset string) *pb.ProgressBar {
	r.mu.Lock()
	defer r.mu.Unlock()

	if bar, ok := r.bars[dataset]; ok {
		return bar
	}

	bar := pb.New64(1)
	bar.SetTemplateString(fmt.Sprintf(`{{ "%s:" }} {{ bar . }} {{percent . }} {{etime .}}`, dataset))
	r.bars[dataset] = bar
	r.order = append(r.order, dataset)
	sort.Strings(r.order)
	return bar
}

// Start renders every bar created so far as a pool. Call once the datasets
// to track are known. Bars created after Start are not added to the
// running pool and are not rendered.
func (r *Renderer) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}
	r.started = true

	bars := make([]*pb.ProgressBar, 0, len(r.order))
	for _, name := range r.order {
		bars = append(bars, r.bars[name])
	}
	pool, err := pb.StartPool(bars...)
	if err != nil {
		return fmt.Errorf("tui: start progress pool: %w", err)
	}
	r.pool = pool
	return nil
}

// Close finishes every bar and stops the pool.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, bar := range r.bars {
		bar.Finish()
	}
	if r.pool != nil {
		r.pool.Stop()
	}
}
