package tree

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/dbus-txt/dbus-txt/pkg/model"
)

// fakeBus serves canned introspection replies keyed by object path.
type fakeBus struct {
	objects  map[string]Introspection
	failures map[string]error
	block    map[string]bool
	delay    time.Duration

	mu          sync.Mutex
	inFlight    int
	maxInFlight int
	calls       []string
}

func (f *fakeBus) Introspect(ctx context.Context, service, path string) (Introspection, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.calls = append(f.calls, path)
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.block[path] {
		<-ctx.Done()
		return Introspection{}, ctx.Err()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err, ok := f.failures[path]; ok {
		return Introspection{}, err
	}
	info, ok := f.objects[path]
	if !ok {
		return Introspection{}, fmt.Errorf("no such object %s", path)
	}
	return info, nil
}

type introspectFunc func(ctx context.Context, service, path string) (Introspection, error)

func (fn introspectFunc) Introspect(ctx context.Context, service, path string) (Introspection, error) {
	return fn(ctx, service, path)
}

func paths(root *model.ObjectNode) []string {
	var out []string
	root.Walk(func(n *model.ObjectNode) { out = append(out, n.Path) })
	return out
}

func exampleBus() *fakeBus {
	return &fakeBus{
		objects: map[string]Introspection{
			"/":                      {Children: []string{"com", "org"}, Interfaces: []string{"org.freedesktop.DBus.Introspectable"}},
			"/com":                   {Children: []string{"example"}},
			"/com/example":           {Children: []string{"Foo", "Bar"}},
			"/com/example/Foo":       {Interfaces: []string{"com.example.IFace", "org.freedesktop.DBus.Properties"}},
			"/com/example/Bar":       {Interfaces: []string{"com.example.Other"}},
			"/org":                   {Children: []string{"freedesktop"}},
			"/org/freedesktop":       {Children: []string{"Thing"}},
			"/org/freedesktop/Thing": {Interfaces: []string{"org.freedesktop.Thing"}},
		},
	}
}

func TestBuildWalksWholeTree(t *testing.T) {
	b := &Builder{Introspector: exampleBus()}

	root, err := b.Build(context.Background(), "com.example.Foo")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := []string{
		"/",
		"/com",
		"/com/example",
		"/com/example/Foo",
		"/com/example/Bar",
		"/org",
		"/org/freedesktop",
		"/org/freedesktop/Thing",
	}
	if got := paths(root); !reflect.DeepEqual(got, want) {
		t.Errorf("paths = %v, want %v", got, want)
	}

	foo := root.Children[0].Children[0].Children[0]
	if foo.Segment() != "Foo" {
		t.Fatalf("unexpected node %s", foo.Path)
	}
	wantIfaces := []string{"com.example.IFace", "org.freedesktop.DBus.Properties"}
	if !reflect.DeepEqual(foo.Interfaces, wantIfaces) {
		t.Errorf("interfaces = %v, want %v", foo.Interfaces, wantIfaces)
	}
}

func TestBuildRootFailure(t *testing.T) {
	bus := exampleBus()
	bus.failures = map[string]error{"/": errors.New("access denied")}
	b := &Builder{Introspector: bus}

	root, err := b.Build(context.Background(), "com.example.Foo")
	if root != nil {
		t.Errorf("expected no tree, got %v", paths(root))
	}
	var buildErr *BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("expected *BuildError, got %v", err)
	}
	if buildErr.Service != "com.example.Foo" {
		t.Errorf("Service = %q", buildErr.Service)
	}
	if !errors.Is(err, ErrIntrospection) {
		t.Errorf("expected ErrIntrospection in chain, got %v", err)
	}
}

func TestBuildPartialFailureLeavesEmptyLeaf(t *testing.T) {
	bus := exampleBus()
	bus.failures = map[string]error{"/com/example": errors.New("timeout")}
	b := &Builder{Introspector: bus}

	root, err := b.Build(context.Background(), "com.example.Foo")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := []string{"/", "/com", "/com/example", "/org", "/org/freedesktop", "/org/freedesktop/Thing"}
	if got := paths(root); !reflect.DeepEqual(got, want) {
		t.Errorf("paths = %v, want %v", got, want)
	}
	failed := root.Children[0].Children[0]
	if len(failed.Children) != 0 || len(failed.Interfaces) != 0 {
		t.Errorf("failed node should be an empty leaf, got %+v", failed)
	}
}

func TestBuildDepthGuard(t *testing.T) {
	// Every object claims a child, so the tree never ends.
	endless := introspectFunc(func(ctx context.Context, service, path string) (Introspection, error) {
		return Introspection{Children: []string{"loop"}}, nil
	})
	b := &Builder{Introspector: endless, MaxDepth: 5}

	_, err := b.Build(context.Background(), "org.example.Loop")
	if !errors.Is(err, ErrDepthExceeded) {
		t.Fatalf("expected ErrDepthExceeded, got %v", err)
	}
	var buildErr *BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("expected *BuildError, got %T", err)
	}
}

func TestBuildDepthAtLimitIsAccepted(t *testing.T) {
	deep := introspectFunc(func(ctx context.Context, service, path string) (Introspection, error) {
		depth := 0
		if path != "/" {
			for _, c := range path {
				if c == '/' {
					depth++
				}
			}
		}
		if depth < 3 {
			return Introspection{Children: []string{"n"}}, nil
		}
		return Introspection{Interfaces: []string{"org.example.Leaf"}}, nil
	})
	b := &Builder{Introspector: deep, MaxDepth: 3}

	root, err := b.Build(context.Background(), "org.example.Deep")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := paths(root); !reflect.DeepEqual(got, []string{"/", "/n", "/n/n", "/n/n/n"}) {
		t.Errorf("paths = %v", got)
	}
}

func TestBuildSkipsInvalidAndDuplicateChildren(t *testing.T) {
	bus := &fakeBus{
		objects: map[string]Introspection{
			"/":  {Children: []string{"a", "", "a", "../etc", "b/c", "b"}},
			"/a": {Interfaces: []string{"org.example.A", "org.example.A"}},
			"/b": {},
		},
	}
	b := &Builder{Introspector: bus}

	root, err := b.Build(context.Background(), "org.example")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := paths(root); !reflect.DeepEqual(got, []string{"/", "/a", "/b"}) {
		t.Errorf("paths = %v", got)
	}
	if got := root.Children[0].Interfaces; !reflect.DeepEqual(got, []string{"org.example.A"}) {
		t.Errorf("interfaces = %v", got)
	}
}

func TestBuildTimeoutBecomesBuildError(t *testing.T) {
	bus := exampleBus()
	bus.block = map[string]bool{"/org/freedesktop": true}
	b := &Builder{Introspector: bus}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	root, err := b.Build(ctx, "com.example.Foo")
	if root != nil {
		t.Error("expected no tree after timeout")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestBuildBoundsConcurrentCalls(t *testing.T) {
	bus := &fakeBus{objects: map[string]Introspection{}, delay: 2 * time.Millisecond}
	var children []string
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("n%d", i)
		children = append(children, name)
		bus.objects["/"+name] = Introspection{Interfaces: []string{"org.example.N"}}
	}
	bus.objects["/"] = Introspection{Children: children}

	b := &Builder{Introspector: bus, Calls: semaphore.NewWeighted(3)}
	root, err := b.Build(context.Background(), "org.example")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := len(root.Children); got != 20 {
		t.Fatalf("children = %d, want 20", got)
	}
	for i, c := range root.Children {
		if want := fmt.Sprintf("/n%d", i); c.Path != want {
			t.Errorf("child %d = %s, want %s", i, c.Path, want)
		}
	}
	if bus.maxInFlight > 3 {
		t.Errorf("max in-flight calls = %d, limit 3", bus.maxInFlight)
	}
}

func TestValidSegment(t *testing.T) {
	for _, s := range []string{"a", "Foo_1", "_", "0"} {
		if !ValidSegment(s) {
			t.Errorf("ValidSegment(%q) = false", s)
		}
	}
	for _, s := range []string{"", "a/b", "..", "a-b", "a.b", "é"} {
		if ValidSegment(s) {
			t.Errorf("ValidSegment(%q) = true", s)
		}
	}
}
