// Package tree walks a service's object space and builds the
// model.ObjectNode hierarchy from introspection replies.
package tree

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/dbus-txt/dbus-txt/pkg/model"
)

// DefaultMaxDepth bounds how deep a service's object tree may go before
// the builder gives up on it.
const DefaultMaxDepth = 64

var (
	// ErrIntrospection wraps any failure reported by the Introspector.
	ErrIntrospection = errors.New("introspection failed")

	// ErrDepthExceeded is the cause of a BuildError for trees deeper than
	// the configured maximum.
	ErrDepthExceeded = errors.New("object tree exceeds maximum depth")
)

// Introspection is what one introspection call reports for a path.
type Introspection struct {
	Children   []string
	Interfaces []string
}

// Introspector queries a single object path of a service.
type Introspector interface {
	Introspect(ctx context.Context, service, path string) (Introspection, error)
}

// BuildError means no tree could be produced for Service.
type BuildError struct {
	Service string
	Err     error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("introspecting %s: %v", e.Service, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// Builder turns introspection replies into object trees.
type Builder struct {
	Introspector Introspector

	// MaxDepth is the deepest level below "/" that is accepted. Zero means
	// DefaultMaxDepth.
	MaxDepth int

	// Calls, when set, bounds the number of introspection calls in flight.
	// It may be shared with other builders and other bus lookups.
	Calls *semaphore.Weighted

	Logger *slog.Logger
}

// Build introspects service starting at "/". A failure at the root, an
// over-deep tree or a cancelled context yield a *BuildError. Failures
// below the root leave an empty leaf in place of the failed subtree.
func (b *Builder) Build(ctx context.Context, service string) (*model.ObjectNode, error) {
	w := &walk{
		Builder:  b,
		service:  service,
		maxDepth: b.MaxDepth,
		logger:   b.logger().With("service", service),
	}
	if w.maxDepth <= 0 {
		w.maxDepth = DefaultMaxDepth
	}

	info, err := w.introspect(ctx, "/")
	if err != nil {
		return nil, &BuildError{Service: service, Err: err}
	}

	root := w.node(ctx, "/", info, 0)

	if err := w.failure(); err != nil {
		return nil, &BuildError{Service: service, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &BuildError{Service: service, Err: err}
	}
	return root, nil
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// walk holds the state of a single Build call.
type walk struct {
	*Builder
	service  string
	maxDepth int
	logger   *slog.Logger

	mu  sync.Mutex
	err error
}

func (w *walk) fail(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		w.err = err
	}
}

func (w *walk) failure() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *walk) introspect(ctx context.Context, path string) (Introspection, error) {
	if w.Calls != nil {
		if err := w.Calls.Acquire(ctx, 1); err != nil {
			return Introspection{}, err
		}
		defer w.Calls.Release(1)
	}
	if err := ctx.Err(); err != nil {
		return Introspection{}, err
	}

	info, err := w.Introspector.Introspect(ctx, w.service, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Introspection{}, ctxErr
		}
		return Introspection{}, fmt.Errorf("%w: %s: %w", ErrIntrospection, path, err)
	}
	return info, nil
}

// node builds the node at path from its introspection reply, descending
// into the children concurrently.
func (w *walk) node(ctx context.Context, path string, info Introspection, depth int) *model.ObjectNode {
	n := &model.ObjectNode{
		Path:       path,
		Interfaces: dedupe(info.Interfaces),
	}

	segments := w.segments(path, info.Children)
	if len(segments) == 0 {
		return n
	}
	if depth+1 > w.maxDepth {
		w.fail(fmt.Errorf("%w (%d) at %s", ErrDepthExceeded, w.maxDepth, path))
		return n
	}

	n.Children = make([]*model.ObjectNode, len(segments))
	var wg sync.WaitGroup
	for i, seg := range segments {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.Children[i] = w.child(ctx, model.ChildPath(path, seg), depth+1)
		}()
	}
	wg.Wait()
	return n
}

func (w *walk) child(ctx context.Context, path string, depth int) *model.ObjectNode {
	if w.failure() != nil {
		return &model.ObjectNode{Path: path}
	}
	info, err := w.introspect(ctx, path)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Debug("treating object as empty leaf", "path", path, "error", err)
		}
		return &model.ObjectNode{Path: path}
	}
	return w.node(ctx, path, info, depth)
}

// segments drops child names that are not valid object path elements
// and repeated ones; a misbehaving peer can report either.
func (w *walk) segments(path string, children []string) []string {
	out := make([]string, 0, len(children))
	seen := make(map[string]bool, len(children))
	for _, c := range children {
		if !ValidSegment(c) {
			w.logger.Debug("skipping invalid child name", "path", path, "child", c)
			continue
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// ValidSegment reports whether s is a legal object path element: one or
// more of [A-Za-z0-9_].
func ValidSegment(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			return false
		}
	}
	return true
}

func dedupe(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
