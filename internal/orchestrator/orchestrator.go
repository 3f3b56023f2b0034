// Package orchestrator implements component C10: the per-configuration
// driver that seeds top-level index tasks, consumes the worker pool's
// message stream, tracks per-dataset indexing progress, and schedules the
// recursive install/map task once a dataset's tree has been fully indexed.
// Ported from configuration.py's Configuration.install/.map and their
// shared IndexStatus/IndexesStatuses bookkeeping.
package orchestrator

import (
	"context"
	"net/http"

	"undr/internal/config"
	"undr/internal/indextask"
	"undr/internal/installmode"
	"undr/internal/installtask"
	"undr/internal/manifest"
	"undr/internal/maptask"
	"undr/internal/pathid"
	"undr/internal/progress"
	"undr/internal/remote"
	"undr/internal/selector"
	"undr/internal/store"
	"undr/internal/taskpool"
	"undr/internal/undrerrors"
)

// IndexStatus tracks one dataset's indexing progress: current is the number
// of DirectoryScanned messages received so far, final is the running total
// of directories discovered (seeded at 1 for the dataset root, incremented
// by every IndexLoaded.Children). DownloadedAndProcessed stays true only as
// long as every directory scanned so far reported nothing left to do.
type IndexStatus struct {
	Current                int
	Final                  int
	DownloadedAndProcessed bool
}

// IndexesStatuses maps a dataset name (a PathId's root component) to its
// IndexStatus.
type IndexesStatuses map[string]*IndexStatus

// Orchestrator drives one configuration's worth of datasets through
// indexing and then installation (or processing).
type Orchestrator struct {
	PathRoot  string
	Datasets  []config.DatasetSettings
	Manifests *manifest.Store
	Workers   int
	Force     bool
	Display   progress.Display

	// onMessage, when set, is invoked for every message the pool produces,
	// after display.Handle. Map uses it to record maptask.Progress into a
	// durable Store; Dois uses it to collect indextask.Doi values. Install
	// leaves it nil.
	onMessage func(message interface{})

	// directoryDoi is forwarded to every seeded Index task; only Dois sets
	// it, since a directory's own Doi is only worth the extra message on a
	// DOI-collection run.
	directoryDoi bool
}

func (o *Orchestrator) manifests() *manifest.Store {
	if o.Manifests != nil {
		return o.Manifests
	}
	return manifest.NewStore()
}

func (o *Orchestrator) display() progress.Display {
	if o.Display != nil {
		return o.Display
	}
	return progress.Null{}
}

func (o *Orchestrator) enabledDatasets() []config.DatasetSettings {
	out := make([]config.DatasetSettings, 0, len(o.Datasets))
	for _, ds := range o.Datasets {
		if ds.Mode != string(installmode.Disabled) {
			out = append(out, ds)
		}
	}
	return out
}

// Install runs a plain install: every enabled dataset is indexed, then
// installed according to its configured mode (REMOTE/LOCAL/RAW).
func (o *Orchestrator) Install(ctx context.Context) (IndexesStatuses, error) {
	o.onMessage = nil
	o.directoryDoi = false
	return o.run(ctx,
		func(mode installmode.Mode) selector.Selector {
			return selector.NewInstallSelector(mode)
		},
		func(ds config.DatasetSettings, srv remote.Server, sel selector.Selector, manifests *manifest.Store) taskpool.Task {
			return &installtask.InstallFilesRecursive{
				PathRoot:  o.PathRoot,
				PathId:    pathid.New(ds.Name),
				Server:    srv,
				Manifests: manifests,
				Selector:  sel,
				Priority:  1,
				Force:     o.Force,
			}
		},
	)
}

// Map runs a processing pass: every enabled dataset is indexed, then every
// file whose type has a handler in sw is streamed through it. progressStore
// (optional) lets a resumed run Selector-SKIP files already recorded
// complete.
func (o *Orchestrator) Map(ctx context.Context, sw maptask.Switch, progressStore *store.Store) (IndexesStatuses, error) {
	var readOnly *store.ReadOnlyStore
	if progressStore != nil {
		readOnly = &progressStore.ReadOnlyStore
	}
	enabledTypes := sw.EnabledTypes()
	o.directoryDoi = false
	o.onMessage = func(message interface{}) {
		if progressStore == nil {
			return
		}
		if p, ok := message.(maptask.Progress); ok {
			progressStore.Add(p.PathId.String())
		}
	}
	return o.run(ctx,
		func(installmode.Mode) selector.Selector {
			return selector.MapSelector{EnabledTypes: enabledTypes, Store: readOnly}
		},
		func(ds config.DatasetSettings, srv remote.Server, sel selector.Selector, manifests *manifest.Store) taskpool.Task {
			return &maptask.ProcessFilesRecursive{
				PathRoot:  o.PathRoot,
				PathId:    pathid.New(ds.Name),
				Server:    srv,
				Manifests: manifests,
				Selector:  sel,
				Switch:    sw,
				Priority:  1,
			}
		},
	)
}

// Dois indexes every enabled dataset using DoiSelector and returns every
// Doi message the crawl produced, in arrival order. Grounded on the bibtex
// collaborator's need to walk a dataset tree purely for identifiers,
// without downloading or processing any file content.
func (o *Orchestrator) Dois(ctx context.Context) ([]indextask.Doi, error) {
	var dois []indextask.Doi
	o.directoryDoi = true
	o.onMessage = func(message interface{}) {
		if d, ok := message.(indextask.Doi); ok {
			dois = append(dois, d)
		}
	}
	_, err := o.run(ctx,
		func(installmode.Mode) selector.Selector { return selector.DoiSelector{} },
		func(config.DatasetSettings, remote.Server, selector.Selector, *manifest.Store) taskpool.Task {
			return noopTask{}
		},
	)
	return dois, err
}

// noopTask satisfies taskpool.Task without doing anything; it is used as the
// root task builder for a Dois run, which never needs install/map behavior
// since DoiSelector never reports a directory as needing download or
// processing in the first place.
type noopTask struct{}

func (noopTask) Run(context.Context, *http.Client, taskpool.Manager) error { return nil }

type selectorBuilder func(mode installmode.Mode) selector.Selector
type rootTaskBuilder func(ds config.DatasetSettings, srv remote.Server, sel selector.Selector, manifests *manifest.Store) taskpool.Task

func (o *Orchestrator) run(ctx context.Context, buildSelector selectorBuilder, buildRootTask rootTaskBuilder) (IndexesStatuses, error) {
	enabled := o.enabledDatasets()
	if len(enabled) == 0 {
		return nil, undrerrors.ErrEmptyConfig
	}

	manifests := o.manifests()
	display := o.display()
	pool := taskpool.NewPool(o.Workers, 2, &http.Client{})

	statuses := make(IndexesStatuses, len(enabled))
	selectors := make(map[string]selector.Selector, len(enabled))
	servers := make(map[string]remote.Server, len(enabled))
	byName := make(map[string]config.DatasetSettings, len(enabled))
	rootScheduled := make(map[string]bool, len(enabled))

	for _, ds := range enabled {
		mode, err := installmode.Parse(ds.Mode)
		if err != nil {
			return nil, err
		}
		sel := buildSelector(mode)
		srv := remote.Server{URL: ds.URL, Timeout: ds.TimeoutDuration()}
		selectors[ds.Name] = sel
		servers[ds.Name] = srv
		byName[ds.Name] = ds
		statuses[ds.Name] = &IndexStatus{Final: 1, DownloadedAndProcessed: true}

		pool.Schedule(&indextask.Index{
			PathRoot:     o.PathRoot,
			PathId:       pathid.New(ds.Name),
			Server:       srv,
			Manifests:    manifests,
			Selector:     sel,
			Priority:     0,
			Force:        o.Force,
			DirectoryDoi: o.directoryDoi,
		}, 0)
	}

	var firstErr error
	for msg := range pool.Messages() {
		display.Handle(msg)
		if o.onMessage != nil {
			o.onMessage(msg)
		}

		switch m := msg.(type) {
		case *taskpool.WorkerException:
			if firstErr == nil {
				firstErr = m
			}
			pool.Close(taskpool.Kill)
			return statuses, firstErr

		case indextask.IndexLoaded:
			name := m.PathId.Root()
			if st, ok := statuses[name]; ok {
				st.Final += m.Children
			}

		case indextask.DirectoryScanned:
			name := m.PathId.Root()
			st, ok := statuses[name]
			if !ok {
				continue
			}
			st.Current++
			if m.DownloadBytes.Initial != m.DownloadBytes.Final || m.ProcessBytes.Initial != m.ProcessBytes.Final {
				st.DownloadedAndProcessed = false
			}
			if st.Current == st.Final && !st.DownloadedAndProcessed && !rootScheduled[name] {
				rootScheduled[name] = true
				ds := byName[name]
				pool.Schedule(buildRootTask(ds, servers[name], selectors[name], manifests), 1)
			}
		}
	}

	pool.Close(taskpool.Cancel)
	return statuses, firstErr
}
