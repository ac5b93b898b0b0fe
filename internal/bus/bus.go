// Package bus talks to the D-Bus daemon: it lists the names on a bus,
// finds the process behind a name, and introspects object paths.
package bus

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/dbus-txt/dbus-txt/internal/proc"
	"github.com/dbus-txt/dbus-txt/internal/tree"
	"github.com/dbus-txt/dbus-txt/pkg/model"
)

const (
	daemonName      = "org.freedesktop.DBus"
	daemonInterface = "org.freedesktop.DBus"

	methodListNames            = daemonInterface + ".ListNames"
	methodListActivatableNames = daemonInterface + ".ListActivatableNames"
	methodGetUnixProcessID     = daemonInterface + ".GetConnectionUnixProcessID"
	methodIntrospect           = "org.freedesktop.DBus.Introspectable.Introspect"
)

// ErrUnavailable means the bus daemon could not be reached or refused to
// list its names. Nothing can be reported without it.
var ErrUnavailable = errors.New("bus unavailable")

// Conn is a connection to one bus.
type Conn struct {
	conn   *dbus.Conn
	bus    model.Bus
	logger *slog.Logger
}

// Options selects the bus to connect to. Address, when set, overrides
// Bus with an explicit D-Bus server address.
type Options struct {
	Bus     model.Bus
	Address string
	Logger  *slog.Logger
}

// Connect opens a private connection to the selected bus.
func Connect(ctx context.Context, opts Options) (*Conn, error) {
	var (
		conn *dbus.Conn
		err  error
	)
	switch {
	case opts.Address != "":
		conn, err = dbus.Connect(opts.Address, dbus.WithContext(ctx))
	case opts.Bus == model.BusSystem:
		conn, err = dbus.ConnectSystemBus(dbus.WithContext(ctx))
	case opts.Bus == model.BusSession:
		conn, err = dbus.ConnectSessionBus(dbus.WithContext(ctx))
	default:
		return nil, fmt.Errorf("unknown bus %q", opts.Bus)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to %s bus: %w", ErrUnavailable, opts.Bus, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Conn{conn: conn, bus: opts.Bus, logger: logger}, nil
}

func (c *Conn) Bus() model.Bus {
	return c.bus
}

func (c *Conn) Close() error {
	return c.conn.Close()
}

// ListNames returns the names currently owned on the bus, in the order
// the daemon reports them.
func (c *Conn) ListNames(ctx context.Context) ([]model.BusName, error) {
	var names []string
	if err := c.conn.BusObject().CallWithContext(ctx, methodListNames, 0).Store(&names); err != nil {
		return nil, fmt.Errorf("%w: listing names: %w", ErrUnavailable, err)
	}
	out := make([]model.BusName, 0, len(names))
	for _, n := range names {
		out = append(out, model.NewBusName(n))
	}
	return out, nil
}

// ListActivatableNames returns the names the daemon can start on demand,
// whether or not they are currently running.
func (c *Conn) ListActivatableNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.conn.BusObject().CallWithContext(ctx, methodListActivatableNames, 0).Store(&names); err != nil {
		return nil, fmt.Errorf("listing activatable names: %w", err)
	}
	return names, nil
}

// ResolveProcess finds the process owning name. It never fails: an
// unresolvable owner yields empty fields.
func (c *Conn) ResolveProcess(ctx context.Context, name string) model.ProcessInfo {
	var pid uint32
	err := c.conn.BusObject().CallWithContext(ctx, methodGetUnixProcessID, 0, name).Store(&pid)
	if err != nil || pid == 0 {
		c.logger.Debug("no process for name", "name", name, "error", err)
		return model.ProcessInfo{}
	}

	info, err := proc.ReadProcess(int(pid))
	if err != nil {
		c.logger.Debug("reading process", "name", name, "pid", pid, "error", err)
	}
	info.PID = int(pid)
	return info
}

// Introspect returns the child segments and interfaces at path.
func (c *Conn) Introspect(ctx context.Context, service, path string) (tree.Introspection, error) {
	objectPath := dbus.ObjectPath(path)
	if !objectPath.IsValid() {
		return tree.Introspection{}, fmt.Errorf("invalid object path %q", path)
	}

	var data string
	err := c.conn.Object(service, objectPath).CallWithContext(ctx, methodIntrospect, 0).Store(&data)
	if err != nil {
		return tree.Introspection{}, err
	}
	return ParseIntrospection(data)
}

// ParseIntrospection decodes an introspection XML document.
func ParseIntrospection(data string) (tree.Introspection, error) {
	var node introspect.Node
	if err := xml.Unmarshal([]byte(data), &node); err != nil {
		return tree.Introspection{}, fmt.Errorf("decoding introspection data: %w", err)
	}

	var out tree.Introspection
	for _, iface := range node.Interfaces {
		if iface.Name != "" {
			out.Interfaces = append(out.Interfaces, iface.Name)
		}
	}
	for _, child := range node.Children {
		if child.Name != "" {
			out.Children = append(out.Children, child.Name)
		}
	}
	return out, nil
}
