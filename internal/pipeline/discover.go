package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/dbus-txt/dbus-txt/internal/filter"
	"github.com/dbus-txt/dbus-txt/internal/tree"
	"github.com/dbus-txt/dbus-txt/pkg/model"
)

const (
	DefaultWorkers = 8
	DefaultTimeout = 5 * time.Second
)

// Source enumerates a bus and resolves name owners.
type Source interface {
	ListNames(ctx context.Context) ([]model.BusName, error)
	ListActivatableNames(ctx context.Context) ([]string, error)
	ResolveProcess(ctx context.Context, name string) model.ProcessInfo
}

type DiscoverConfig struct {
	Bus      model.Bus
	Criteria model.FilterCriteria

	// Workers bounds both the services handled at once and the bus calls
	// in flight.
	Workers int

	// Timeout applies to each service's introspection as a whole.
	Timeout time.Duration

	MaxDepth int

	// Activatable adds names that can be bus-activated but are not
	// running. WakeUp introspects them, which starts them.
	Activatable bool
	WakeUp      bool

	// ResolveProcesses looks up the owning process of every surviving
	// service before filtering. It is implied by a process pattern.
	ResolveProcesses bool

	Logger *slog.Logger
}

func (cfg DiscoverConfig) withDefaults() DiscoverConfig {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = tree.DefaultMaxDepth
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return cfg
}

// Discover runs one pass over the bus: enumerate, introspect, filter. It
// fails only when the bus cannot be enumerated. When ctx is cancelled it
// stops starting work and returns the services completed so far.
func Discover(ctx context.Context, cfg DiscoverConfig, src Source, intro tree.Introspector) (model.Result, error) {
	cfg = cfg.withDefaults()
	engine := filter.New(cfg.Criteria)

	entries, interrupted, err := Collect(ctx, cfg, src, intro, engine)
	if err != nil {
		return model.Result{}, err
	}

	services := engine.Apply(entries)
	cfg.Logger.Debug("discovery finished",
		"bus", cfg.Bus,
		"introspected", len(entries),
		"reported", len(services),
		"interrupted", interrupted,
	)
	return model.Result{
		Bus:         cfg.Bus,
		Services:    services,
		Interrupted: interrupted,
	}, nil
}

// Collect enumerates the bus and builds an entry for every name engine
// admits, in enumeration order. Entries are unfiltered beyond the name
// gates, so callers may filter them again with other criteria. The
// boolean result reports whether cancellation left services out.
func Collect(ctx context.Context, cfg DiscoverConfig, src Source, intro tree.Introspector, engine *filter.Engine) ([]*model.ServiceEntry, bool, error) {
	cfg = cfg.withDefaults()
	if engine == nil {
		engine = filter.New(cfg.Criteria)
	}

	names, err := enumerate(ctx, cfg, src)
	if err != nil {
		return nil, false, err
	}

	var admitted []model.BusName
	for _, n := range names {
		if engine.Admits(n) {
			admitted = append(admitted, n)
		}
	}

	calls := semaphore.NewWeighted(int64(cfg.Workers))
	builder := &tree.Builder{
		Introspector: intro,
		MaxDepth:     cfg.MaxDepth,
		Calls:        calls,
		Logger:       cfg.Logger,
	}
	resolve := cfg.ResolveProcesses || engine.NeedsProcess()

	results := make([]*model.ServiceEntry, len(admitted))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for range min(cfg.Workers, len(admitted)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = collectOne(ctx, cfg, src, builder, calls, admitted[i], resolve)
			}
		}()
	}

feed:
	for i := range admitted {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	interrupted := false
	entries := make([]*model.ServiceEntry, 0, len(results))
	for _, e := range results {
		if e == nil {
			interrupted = true
			continue
		}
		entries = append(entries, e)
	}
	return entries, interrupted, nil
}

func enumerate(ctx context.Context, cfg DiscoverConfig, src Source) ([]model.BusName, error) {
	names, err := src.ListNames(ctx)
	if err != nil {
		return nil, err
	}
	if !cfg.Activatable {
		return names, nil
	}

	activatable, err := src.ListActivatableNames(ctx)
	if err != nil {
		cfg.Logger.Warn("cannot list activatable services", "error", err)
		return names, nil
	}
	owned := make(map[string]bool, len(names))
	for _, n := range names {
		owned[n.Name] = true
	}
	for _, a := range activatable {
		if owned[a] {
			continue
		}
		name := model.NewBusName(a)
		name.Activatable = true
		names = append(names, name)
	}
	return names, nil
}

// collectOne builds the entry for a single name. It returns nil when the
// run was cancelled before the service completed.
func collectOne(ctx context.Context, cfg DiscoverConfig, src Source, builder *tree.Builder, calls *semaphore.Weighted, name model.BusName, resolve bool) *model.ServiceEntry {
	if ctx.Err() != nil {
		return nil
	}

	lookup := func() model.ProcessInfo {
		lookupCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		if err := calls.Acquire(lookupCtx, 1); err != nil {
			return model.ProcessInfo{}
		}
		defer calls.Release(1)
		return src.ResolveProcess(lookupCtx, name.Name)
	}
	entry := model.NewServiceEntry(name, lookup)

	if name.Activatable && !cfg.WakeUp {
		return entry
	}
	entry.Running = true

	serviceCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	root, err := builder.Build(serviceCtx, name.Name)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w (timeout %s)", err, cfg.Timeout)
		}
		cfg.Logger.Debug("service not introspected", "service", name.Name, "error", err)
		entry.Err = err
	}
	entry.Root = root

	if resolve {
		entry.Process()
		if ctx.Err() != nil {
			return nil
		}
	}
	return entry
}
