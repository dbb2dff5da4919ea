package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bamsammich/ferry/internal/config"
	"github.com/bamsammich/ferry/internal/filter"
	"github.com/bamsammich/ferry/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(run())
}

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	chain       *filter.Chain
	filterFile  string
	minSizeStr  string
	maxSizeStr  string
	chunkStr    string
	bwLimitStr  string
	sshKeyFile  string
	logFile     string
	sshPort     int
	verbose     bool
	quiet       bool
	compress    bool
	showVersion bool

	cfg     config.Config
	logDone func()
}

// filterFlag is a custom pflag.Value that preserves CLI ordering of
// --exclude and --include rules by appending to a shared filter.Chain.
type filterFlag struct {
	chain   *filter.Chain
	include bool
}

func (*filterFlag) String() string { return "" }
func (*filterFlag) Type() string   { return "string" }

func (f *filterFlag) Set(val string) error {
	if f.include {
		return f.chain.AddInclude(val)
	}
	return f.chain.AddExclude(val)
}

func newRootCmd(g *globals) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ferry",
		Short: "Walk and transfer file trees between this machine and devices",
		Long: `ferry walks a file tree on the local disk, an SSH host or a device agent
and streams it somewhere else: to a local folder, to a device, into a zip
package or into memory.

Locations:
  /path, ./path            local file system
  [user@]host:/path        SFTP over SSH
  dev://host[:port]/path   ferry device agent (see "ferry serve")`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if g.showVersion {
				fmt.Fprintf(cmd.OutOrStdout(), "ferry %s\n", version)
				return nil
			}
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if g.logDone != nil {
				g.logDone()
			}
		},
	}

	rootCmd.Flags().BoolVar(&g.showVersion, "version", false, "print version and exit")

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "verbose output")
	pf.BoolVarP(&g.quiet, "quiet", "q", false, "suppress all output except errors")
	pf.StringVar(&g.logFile, "log", "", "write structured JSON log to FILE")
	pf.StringVar(&g.chunkStr, "chunk-size", "", "read size per request (e.g. 64K, 1M)")
	pf.StringVar(&g.bwLimitStr, "bwlimit", "", "bandwidth limit (e.g. 100M, 1G)")
	pf.BoolVar(&g.compress, "compress", false, "compress device connections with zstd")
	pf.StringVar(&g.sshKeyFile, "ssh-key", "", "SSH private key file (default: auto-detect)")
	pf.IntVar(&g.sshPort, "ssh-port", 22, "SSH port")

	// Filter flags use a custom pflag.Value to preserve CLI ordering.
	pf.Var(&filterFlag{chain: g.chain}, "exclude", "exclude files matching PATTERN (repeatable)")
	pf.Var(&filterFlag{chain: g.chain, include: true}, "include", "include files matching PATTERN (repeatable)")
	pf.StringVar(&g.filterFile, "filter", "", "read filter rules from FILE")
	pf.StringVar(&g.minSizeStr, "min-size", "", "skip files smaller than SIZE (e.g. 1M, 100K)")
	pf.StringVar(&g.maxSizeStr, "max-size", "", "skip files larger than SIZE (e.g. 1G, 500M)")
	pf.VisitAll(func(f *pflag.Flag) {
		if f.Name == "exclude" || f.Name == "include" {
			f.NoOptDefVal = ""
		}
	})

	rootCmd.AddCommand(
		newPullCmd(g),
		newPushCmd(g),
		newZipCmd(g),
		newPackageCmd(g),
		newCatCmd(g),
		newDuCmd(g),
		newServeCmd(g),
		newDocsCmd(),
	)
	return rootCmd
}

func run() int {
	g := &globals{chain: filter.NewChain()}
	rootCmd := newRootCmd(g)

	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

// setup loads the config file, applies its defaults and configures logging.
func (g *globals) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		slog.Warn("failed to load config", "error", err)
	}
	g.cfg = cfg
	applyConfigDefaults(cmd, cfg.Defaults, g)

	// Configure logging.
	logLevel := slog.LevelWarn
	if g.verbose {
		logLevel = slog.LevelDebug
	} else if !g.quiet {
		logLevel = slog.LevelInfo
	}
	textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	var logHandler slog.Handler = textHandler
	if g.logFile != "" {
		lf, err := os.Create(g.logFile)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		g.logDone = func() { lf.Close() }
		jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{Level: slog.LevelDebug})
		logHandler = ui.NewMultiHandler(textHandler, jsonHandler)
	}
	slog.SetDefault(slog.New(logHandler))

	if g.filterFile != "" {
		if err := g.chain.LoadFile(g.filterFile); err != nil {
			return fmt.Errorf("load filter file: %w", err)
		}
	}
	if g.minSizeStr != "" {
		n, err := filter.ParseSize(g.minSizeStr)
		if err != nil {
			return fmt.Errorf("invalid --min-size: %w", err)
		}
		g.chain.SetMinSize(n)
	}
	if g.maxSizeStr != "" {
		n, err := filter.ParseSize(g.maxSizeStr)
		if err != nil {
			return fmt.Errorf("invalid --max-size: %w", err)
		}
		g.chain.SetMaxSize(n)
	}
	return nil
}

// applyConfigDefaults applies config file defaults for flags not explicitly
// set on the CLI.
func applyConfigDefaults(cmd *cobra.Command, d config.DefaultsConfig, g *globals) {
	changed := cmd.Flags().Changed
	if !changed("chunk-size") && d.ChunkSize != nil {
		g.chunkStr = *d.ChunkSize
	}
	if !changed("bwlimit") && d.BWLimit != nil {
		g.bwLimitStr = *d.BWLimit
	}
	if !changed("compress") && d.Compress != nil {
		g.compress = *d.Compress
	}
	if !changed("ssh-port") && d.SSHPort != nil {
		g.sshPort = *d.SSHPort
	}
	if !changed("ssh-key") && d.SSHKey != nil {
		g.sshKeyFile = *d.SSHKey
	}
	if !changed("verbose") && d.Verbose != nil {
		g.verbose = *d.Verbose
	}
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
