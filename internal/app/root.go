// Package app wires the dbus-txt command line to the discovery pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/dbus-txt/dbus-txt/internal/bus"
	"github.com/dbus-txt/dbus-txt/internal/config"
	"github.com/dbus-txt/dbus-txt/internal/filter"
	"github.com/dbus-txt/dbus-txt/internal/output"
	"github.com/dbus-txt/dbus-txt/internal/pipeline"
	"github.com/dbus-txt/dbus-txt/internal/tui"
	"github.com/dbus-txt/dbus-txt/pkg/model"
)

type options struct {
	system  bool
	session bool
	address string

	object   string
	iface    string
	service  string
	process  string
	all      bool
	verbose  bool
	wakeup   bool
	activate bool

	format   string
	jsonOut  bool
	treeOut  bool
	noColor  bool
	noGroup  bool
	interact bool

	workers  int
	timeout  time.Duration
	maxDepth int
	config   string
	debug    bool
}

// settings is the merged result of config file and flags.
type settings struct {
	bus      model.Bus
	address  string
	criteria model.FilterCriteria
	format   config.Format
	color    bool
	group    bool
	workers  int
	timeout  time.Duration
	maxDepth int

	activatable bool
	wakeup      bool
	interactive bool
	debug       bool
}

func newRootCmd(opts *options, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dbus-txt (--system | --session) [flags]",
		Short: "List D-Bus services with their objects and interfaces",
		Long: `dbus-txt lists the services on the system or session bus, the process
behind each one, and the interfaces every object path implements.

Filters accept * and ? as wildcards and must match the whole name.`,
		Example: `  dbus-txt --session
  dbus-txt --system -i 'org.freedesktop.login1.*'
  dbus-txt --session -p '*gnome-shell*' -v
  dbus-txt --system --all --format json`,
		Version:       versionString(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := resolveSettings(cmd.Flags(), opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), s, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError("%v", err)
	})

	f := cmd.Flags()
	f.BoolVar(&opts.system, "system", false, "List services from the system bus")
	f.BoolVar(&opts.session, "session", false, "List services from the session bus")
	f.StringVar(&opts.address, "address", "", "Connect to this D-Bus address instead of a standard bus")

	f.StringVarP(&opts.object, "object", "o", "", "Show only services with an object path matching this (* and ? wildcards)")
	f.StringVarP(&opts.iface, "interface", "i", "", "Show only services with an interface matching this (* and ? wildcards)")
	f.StringVarP(&opts.service, "service", "s", "", "Show only services whose name matches this (* and ? wildcards)")
	f.StringVarP(&opts.process, "process", "p", "", "Show only services whose command line matches this (* and ? wildcards)")
	f.BoolVarP(&opts.all, "all", "a", false, "Also show unique connection names (:X.Y)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Show whole object trees of matching services instead of only the matches")
	f.BoolVar(&opts.activate, "activatable", false, "Also list activatable services that are not running")
	f.BoolVarP(&opts.wakeup, "wakeup", "w", false, "Start activatable services and introspect them (implies --activatable)")

	f.StringVar(&opts.format, "format", "", "Output format: text, tree, short, json or cbor")
	f.BoolVar(&opts.jsonOut, "json", false, "Shorthand for --format json")
	f.BoolVar(&opts.treeOut, "tree", false, "Shorthand for --format tree")
	f.BoolVar(&opts.noColor, "no-color", false, "Disable colorized output")
	f.BoolVar(&opts.noGroup, "no-group", false, "Do not merge names owned by the same process (names are merged only when their trees are identical)")
	f.BoolVarP(&opts.interact, "interactive", "I", false, "Browse the results interactively")

	f.IntVar(&opts.workers, "workers", 0, "Maximum concurrent bus calls (default 8)")
	f.DurationVar(&opts.timeout, "timeout", 0, "Introspection time limit per service (default 5s)")
	f.IntVar(&opts.maxDepth, "max-depth", 0, "Maximum object tree depth (default 64)")
	f.StringVar(&opts.config, "config", "", "Config file (default $"+config.EnvVar+")")
	f.BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	return cmd
}

// resolveSettings merges the config file with flags; a flag given on the
// command line always wins.
func resolveSettings(flags *pflag.FlagSet, opts *options) (settings, error) {
	if opts.system && opts.session {
		return settings{}, usageError("--system and --session cannot be combined")
	}
	if exclusive(opts.jsonOut, opts.treeOut, flags.Changed("format")) > 1 {
		return settings{}, usageError("--json, --tree and --format cannot be combined")
	}

	cfg, err := config.Load(config.Path(opts.config))
	if err != nil {
		return settings{}, usageError("%v", err)
	}

	s := settings{
		bus:      cfg.Bus,
		address:  cfg.Address,
		format:   cfg.Format,
		color:    cfg.Color && !opts.noColor,
		group:    !opts.noGroup,
		workers:  cfg.Workers,
		maxDepth: cfg.MaxDepth,
		criteria: model.FilterCriteria{
			ServicePattern:   opts.service,
			ObjectPattern:    opts.object,
			InterfacePattern: opts.iface,
			ProcessPattern:   opts.process,
			Verbose:          cfg.Verbose,
			IncludeUnique:    cfg.All,
		},
		activatable: cfg.Activatable,
		interactive: opts.interact,
		debug:       opts.debug,
	}
	s.timeout, _ = cfg.TimeoutDuration()

	switch {
	case opts.system:
		s.bus = model.BusSystem
	case opts.session:
		s.bus = model.BusSession
	}
	if flags.Changed("address") {
		s.address = opts.address
	}
	if flags.Changed("all") {
		s.criteria.IncludeUnique = opts.all
	}
	if flags.Changed("verbose") {
		s.criteria.Verbose = opts.verbose
	}
	if flags.Changed("activatable") {
		s.activatable = opts.activate
	}
	if opts.wakeup {
		s.wakeup = true
		s.activatable = true
	}

	switch {
	case opts.jsonOut:
		s.format = config.FormatJSON
	case opts.treeOut:
		s.format = config.FormatTree
	case flags.Changed("format"):
		s.format = config.Format(opts.format)
		if !config.ValidFormat(s.format) {
			return settings{}, usageError("unknown format %q", opts.format)
		}
	}

	if flags.Changed("workers") {
		if opts.workers < 1 {
			return settings{}, usageError("--workers must be at least 1")
		}
		s.workers = opts.workers
	}
	if flags.Changed("timeout") {
		if opts.timeout <= 0 {
			return settings{}, usageError("--timeout must be positive")
		}
		s.timeout = opts.timeout
	}
	if flags.Changed("max-depth") {
		if opts.maxDepth < 1 {
			return settings{}, usageError("--max-depth must be at least 1")
		}
		s.maxDepth = opts.maxDepth
	}

	if s.bus == "" && s.address == "" {
		return settings{}, usageError("select a bus with --system or --session")
	}
	if s.bus == "" {
		s.bus = model.BusSession
	}
	return s, nil
}

func exclusive(set ...bool) int {
	n := 0
	for _, b := range set {
		if b {
			n++
		}
	}
	return n
}

func (s settings) discoverConfig() pipeline.DiscoverConfig {
	return pipeline.DiscoverConfig{
		Bus:              s.bus,
		Criteria:         s.criteria,
		Workers:          s.workers,
		Timeout:          s.timeout,
		MaxDepth:         s.maxDepth,
		Activatable:      s.activatable,
		WakeUp:           s.wakeup,
		ResolveProcesses: s.format != config.FormatShort || s.interactive,
	}
}

func run(ctx context.Context, s settings, stdout, stderr io.Writer) error {
	logger := NewLogger(s.debug).With("bus", s.bus)

	conn, err := bus.Connect(ctx, bus.Options{Bus: s.bus, Address: s.address, Logger: logger})
	if err != nil {
		return &ExitError{Code: ExitFailure, Message: err.Error()}
	}
	defer conn.Close()

	dcfg := s.discoverConfig()
	dcfg.Logger = logger

	if s.interactive {
		collect := func(ctx context.Context, includeUnique bool) ([]*model.ServiceEntry, bool, error) {
			c := dcfg
			c.Criteria.IncludeUnique = includeUnique
			c.Criteria.ServicePattern = ""
			return pipeline.Collect(ctx, c, conn, conn, filter.New(c.Criteria))
		}
		if err := tui.Run(ctx, tui.Options{
			Bus:      s.bus,
			Criteria: s.criteria,
			Collect:  collect,
			Version:  version,
		}); err != nil {
			return unavailable(err)
		}
		return nil
	}

	res, err := pipeline.Discover(ctx, dcfg, conn, conn)
	if err != nil {
		return unavailable(err)
	}
	if res.Interrupted {
		logger.Warn("interrupted, showing the services completed so far", "services", len(res.Services))
	}
	return render(stdout, res, s)
}

func unavailable(err error) error {
	if errors.Is(err, bus.ErrUnavailable) {
		return &ExitError{Code: ExitFailure, Message: err.Error()}
	}
	return err
}

func render(w io.Writer, res model.Result, s settings) error {
	opts := output.Options{Group: s.group}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		opts.Color = s.color && !termenv.EnvNoColor()
		if width, _, err := term.GetSize(int(f.Fd())); err == nil {
			opts.Width = width
		}
	}

	switch s.format {
	case config.FormatJSON:
		return output.RenderJSON(w, res)
	case config.FormatCBOR:
		return output.RenderCBOR(w, res)
	case config.FormatTree:
		output.PrintTree(w, res, opts)
	case config.FormatShort:
		output.RenderShort(w, res, opts)
	default:
		output.RenderText(w, res, opts)
	}
	return nil
}

// Execute runs the command line and exits the process.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(&options{}, stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Message != "" {
			fmt.Fprintf(stderr, "Error: %s\n", exitErr.Message)
		}
		if exitErr.Code == ExitUsage {
			fmt.Fprintln(stderr, "For usage and options, run: dbus-txt --help")
		}
		return exitErr.Code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitFailure
}
