package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Sternrassler/artic-browser/pkg/config"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"
)

// Command is one artic subcommand. Its own flags are parsed together with
// the config flags every command accepts, and Exec only runs once the
// configuration has been resolved and logging is set up.
type Command struct {
	// Flags holds the flags specific to this command.
	Flags *flag.FlagSet

	// Usage is the usage string shown after "artic" in help.
	Usage string

	// Short is a one-line description for the global help listing.
	Short string

	// Long is the full description shown in command help.
	Long string

	// Check validates command flags before configuration is loaded.
	Check func() error

	// Exec runs the command.
	Exec func(ctx context.Context, inv *invocation, args []string) error

	env    map[string]string
	config *flag.FlagSet
	shared configFlags
}

// invocation is what a command runs with after Run resolved its settings.
type invocation struct {
	*IO
	cfg    config.Config
	logger zerolog.Logger
}

// configFlags override settings from the config file and environment.
type configFlags struct {
	path      string
	redisAddr string
	rows      int
	dedup     bool
}

func newCommand(name string, env map[string]string) *Command {
	c := &Command{
		Flags:  flag.NewFlagSet(name, flag.ContinueOnError),
		env:    env,
		config: flag.NewFlagSet(name, flag.ContinueOnError),
	}
	c.config.StringVarP(&c.shared.path, "config", "c", "", "JSONC config `file`")
	c.config.StringVar(&c.shared.redisAddr, "redis", "", "Redis `addr` for sessions and the shared request budget")
	c.config.IntVar(&c.shared.rows, "rows", 0, "rows per page (default from config, 12)")
	c.config.BoolVar(&c.shared.dedup, "dedup", false, "skip already selected artworks during auto-select")
	return c
}

// Name returns the command name (first word of Usage).
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")
	return name
}

// HelpLine returns the short help line for the main usage display.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-30s %s", c.Usage, c.Short)
}

// PrintHelp prints the full help output for "artic <cmd> --help".
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage: artic", c.Usage)
	o.Println()

	desc := c.Long
	if desc == "" {
		desc = c.Short
	}
	o.Println(desc)

	if c.Flags.HasFlags() {
		o.Println()
		o.Println("Flags:")
		o.Printf("%s", c.Flags.FlagUsages())
	}

	o.Println()
	o.Println("Config flags (override --config and ARTIC_* variables):")
	o.Printf("%s", c.config.FlagUsages())
}

// Run parses flags, resolves the configuration and executes the command.
// Returns exit code.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	fs.AddFlagSet(c.Flags)
	fs.AddFlagSet(c.config)
	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.PrintHelp(o)
			return 0
		}
		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		c.PrintHelp(o)
		return 1
	}

	if c.Check != nil {
		if err := c.Check(); err != nil {
			o.ErrPrintln("error:", err)
			return 1
		}
	}

	cfg, err := c.loadConfig()
	if err != nil {
		o.ErrPrintln("error:", err)
		return 1
	}

	inv := &invocation{IO: o, cfg: cfg, logger: setupLogging(cfg, o)}
	if err := c.Exec(ctx, inv, fs.Args()); err != nil {
		o.ErrPrintln("error:", err)
		return 1
	}

	return 0
}

// loadConfig resolves defaults, file and environment, then applies the
// config flags the user actually set. The merged set shares its flags
// with c.config, so Changed reflects the parsed command line.
func (c *Command) loadConfig() (config.Config, error) {
	cfg, err := config.Load(c.shared.path, c.env)
	if err != nil {
		return config.Config{}, err
	}

	if c.config.Changed("redis") {
		cfg.RedisAddr = c.shared.redisAddr
	}
	if c.config.Changed("rows") {
		cfg.PageSize = c.shared.rows
	}
	if c.config.Changed("dedup") {
		cfg.Dedup = c.shared.dedup
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("%w: %w", config.ErrConfigInvalid, err)
	}
	return cfg, nil
}
