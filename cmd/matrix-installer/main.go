package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ensigniasec/matrix-installer/internal/allowlist"
	"github.com/ensigniasec/matrix-installer/internal/config"
	"github.com/ensigniasec/matrix-installer/internal/events"
	"github.com/ensigniasec/matrix-installer/internal/installer"
	"github.com/ensigniasec/matrix-installer/internal/link"
	"github.com/ensigniasec/matrix-installer/internal/progress"
	"github.com/ensigniasec/matrix-installer/internal/storage"
	"github.com/ensigniasec/matrix-installer/internal/tui"
)

const (
	exitFailure = 1

	cliMissingHint = `Matrix CLI is not installed or not in your PATH.

Please install it with:
	pipx install matrix-cli

See https://pypi.org/project/matrix-cli/ and then run the install link again.`
)

//nolint:gochecknoglobals // Cobra requires package-level vars for flag bindings in current structure.
var (
	// Version metadata populated at build time via -ldflags.
	releaseVersion = "dev"
	commit         = "none"
	date           = "unknown"

	// Used for flags.
	configFile  = config.DefaultPath
	verbose     bool
	plainOutput bool
	assumeYes   bool
	emitEvents  bool
	watchFrom   = "-"
	watchTitle  string

	rootCmd = &cobra.Command{
		Use:   "matrix-installer",
		Short: "Install Matrix Hub components from matrix:// links with live progress.",
		Long:  `This tool handles matrix://install links: it validates the link, asks for confirmation, runs the matrix CLI and shows its output and outcome in a progress view that closes itself once the install succeeds.`,
	}
)

//nolint:gochecknoinits // Cobra command wiring performed in init in current structure.
func init() {
	// Route logs to stderr to avoid polluting stdout, especially for --emit-events output.
	logrus.SetOutput(os.Stderr)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable detailed logging output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultPath, "Path to the YAML settings file")

	installCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
	installCmd.Flags().BoolVar(&plainOutput, "plain", false, "Print progress as plain lines instead of the interactive view")
	installCmd.Flags().BoolVar(&emitEvents, "emit-events", false, "Write progress events as JSON lines to stdout for `matrix-installer watch`")

	watchCmd.Flags().StringVar(&watchFrom, "from", "-", "Read JSON-line events from this file or fifo ('-' for stdin)")
	watchCmd.Flags().BoolVar(&plainOutput, "plain", false, "Print progress as plain lines instead of the interactive view")
	watchCmd.Flags().StringVar(&watchTitle, "title", "", "Title shown above the transcript")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)

	allowlistCmd.AddCommand(allowlistAddCmd)
	allowlistCmd.AddCommand(allowlistResetCmd)
	rootCmd.AddCommand(allowlistCmd)

	// Built-in version flag: set version string and a custom template.
	rootCmd.Version = releaseVersion
	rootCmd.Annotations = map[string]string{"commit": commit, "date": date}
	rootCmd.SetVersionTemplate("{{printf \"%s %s\\ncommit: %s\\ndate: %s\\n\" .DisplayName .Version (index .Annotations \"commit\") (index .Annotations \"date\")}}")
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logrus.Fatal(err)
	}
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var installCmd = &cobra.Command{
	Use:   "install LINK",
	Short: "Install the component named by a matrix://install link",
	Long:  "Validate a matrix://install?entity=...&alias=...[&hub=...] link, confirm, run `matrix install` and show its progress.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		configureLogging()
		cfg := loadConfig()

		req, err := link.Parse(args[0])
		if err != nil {
			logrus.Fatalf("Invalid Link: %v", err)
		}
		if req.Hub == "" {
			req.Hub = cfg.Hub
		}

		if !installer.CLIExists(cfg.CLI) {
			fmt.Fprintln(cmd.ErrOrStderr(), cliMissingHint)
			os.Exit(exitFailure)
		}

		if !assumeYes && !trusted(cfg, req.Entity) && !confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), req) {
			fmt.Fprintln(cmd.ErrOrStderr(), "Installation cancelled.")
			return
		}

		rec := storage.NewRecord(req)
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		var c events.Completion
		if emitEvents {
			c = installer.NewRunner(cfg.CLI, events.NewLineWriter(cmd.OutOrStdout())).Install(ctx, req)
		} else {
			c = installWithSurface(ctx, cancel, cfg, req)
		}

		recordOutcome(cfg, rec, c)
		if !c.OK {
			os.Exit(exitFailure)
		}
	},
}

// installWithSurface runs the installer host and the progress surface in this
// process, connected by an in-process bus.
func installWithSurface(ctx context.Context, cancel context.CancelFunc, cfg config.Config, req link.Request) events.Completion {
	bus := events.NewBus()
	defer bus.Close()

	runner := installer.NewRunner(cfg.CLI, bus)
	started := make(chan struct{})
	hostDone := make(chan events.Completion, 1)
	delivered := make(chan struct{})

	status, err := tui.Run(ctx, bus,
		tui.WithTitle(fmt.Sprintf("Installing '%s'...", req.Alias)),
		tui.WithPlain(plainOutput),
		tui.WithSourceDone(delivered),
		tui.WithOnReady(func() {
			close(started)
			c := runner.Install(ctx, req)
			// Close waits until every published event reached the surface.
			bus.Close()
			close(delivered)
			hostDone <- c
		}),
	)
	if err != nil {
		logrus.Debugf("progress surface: %v", err)
	}

	// Closing the surface early stops the CLI.
	cancel()
	select {
	case <-started:
		return <-hostDone
	default:
		return completionFromStatus(status, req.Alias)
	}
}

func completionFromStatus(st progress.Status, alias string) events.Completion {
	switch st.Phase {
	case progress.Succeeded:
		return events.Completion{OK: true, Alias: alias}
	case progress.Failed:
		return events.Completion{Code: st.Code, Alias: alias}
	default:
		return events.Completion{Code: -1, Alias: alias}
	}
}

// confirm asks the user to approve the install on r/w.
func confirm(r io.Reader, w io.Writer, req link.Request) bool {
	fmt.Fprintf(w, "Do you want to install the following component?\n\nEntity:\n  %s\n\nAlias:\n  %s\n", req.Entity, req.Alias)
	if req.Hub != "" {
		fmt.Fprintf(w, "\nHub Override:\n  %s\n", req.Hub)
	}
	fmt.Fprint(w, "\nProceed? [y/N]: ")

	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// trusted reports whether the entity is on the local allowlist.
func trusted(cfg config.Config, entity string) bool {
	v, err := allowlist.NewVerifier(cfg.StorageFile)
	if err != nil {
		logrus.Debugf("allowlist unavailable: %v", err)
		return false
	}
	return v.Allowed(entity)
}

func recordOutcome(cfg config.Config, rec storage.InstallRecord, c events.Completion) {
	st, err := storage.NewOrExistingStorage(cfg.StorageFile)
	if err != nil {
		logrus.Warnf("Unable to open install history: %v", err)
		return
	}
	rec.Finish(c)
	if err := st.Record(rec); err != nil {
		logrus.Warnf("Unable to record install: %v", err)
	}
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show progress for events produced by `install --emit-events` or another host",
	Long:  "Read log-line and install-complete events as JSON lines ({\"event\":...,\"payload\":...}) and render them until the install completes.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		configureLogging()

		in := cmd.InOrStdin()
		fromStdin := watchFrom == "" || watchFrom == "-"
		if !fromStdin {
			f, err := os.Open(watchFrom)
			if err != nil {
				logrus.Fatal(err)
			}
			defer f.Close()
			in = f
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		bus := events.NewBus()
		defer bus.Close()
		delivered := make(chan struct{})
		opts := []tui.Option{
			tui.WithTitle(watchTitle),
			tui.WithPlain(plainOutput),
			tui.WithSourceDone(delivered),
			tui.WithOnReady(func() {
				if err := events.Pump(ctx, in, bus); err != nil && !errors.Is(err, context.Canceled) {
					logrus.Debugf("event stream: %v", err)
				}
				bus.Close()
				close(delivered)
			}),
		}
		if fromStdin && !isatty.IsTerminal(os.Stdin.Fd()) {
			opts = append(opts, tui.WithInputTTY())
		}

		st, err := tui.Run(ctx, bus, opts...)
		if err != nil {
			logrus.Debugf("progress surface: %v", err)
		}
		cancel()
		if st.Phase != progress.Succeeded {
			os.Exit(exitFailure)
		}
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the latest recorded install for each alias",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		configureLogging()
		cfg := loadConfig()

		st, err := storage.NewStorage(cfg.StorageFile)
		if err != nil {
			logrus.Fatal(err)
		}
		hist := st.History()
		if len(hist) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No installs recorded.")
			return
		}
		for _, rec := range hist {
			outcome := "ok"
			if !rec.OK {
				outcome = fmt.Sprintf("failed (exit code: %d)", rec.Code)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-40s %-25s %s\n",
				rec.Alias, rec.Entity, outcome, rec.FinishedAt.Local().Format("2006-01-02 15:04:05"))
		}
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var allowlistCmd = &cobra.Command{
	Use:   "allowlist",
	Short: "Manage the local allowlist of trusted entities",
	Long:  "View, add, or reset allowlisted entities. Installing an allowlisted entity skips the confirmation prompt.",
	Run: func(cmd *cobra.Command, args []string) {
		v := newVerifier()
		v.ViewAllowlist(cmd.OutOrStdout())
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var allowlistAddCmd = &cobra.Command{
	Use:   "add ENTITY",
	Short: "Add an entity to the local allowlist",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		v := newVerifier()
		if err := v.AddToAllowlist(args[0]); err != nil {
			logrus.Fatal(err)
		}
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var allowlistResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the local allowlist",
	Run: func(cmd *cobra.Command, args []string) {
		v := newVerifier()
		if err := v.ResetAllowlist(); err != nil {
			logrus.Fatal(err)
		}
	},
}

func newVerifier() *allowlist.Verifier {
	configureLogging()
	cfg := loadConfig()
	v, err := allowlist.NewVerifier(cfg.StorageFile)
	if err != nil {
		logrus.Fatal(err)
	}
	return v
}

func configureLogging() {
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
}

func loadConfig() config.Config {
	cfg, err := config.Load(configFile)
	if err != nil {
		logrus.Fatalf("Unable to load config: %v", err)
	}
	return cfg
}

func main() {
	Execute()
}
