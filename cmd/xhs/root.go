package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/flyflypeng/xiaohongshu-skill/pkg/config"
	errs "github.com/flyflypeng/xiaohongshu-skill/pkg/errors"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/logger"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/ui"
	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile  string
	logLevel    string
	noColor     bool
	quiet       bool
	headless    bool
	timeout     time.Duration
	userDataDir string
	cookiePath  string
	strategyDoc string
	outputDir   string
	seed        int64

	// appConfig is the configuration loaded for the running command
	appConfig *config.Config
)

// Exit codes
const (
	exitOK        = 0
	exitFailure   = 1
	exitChallenge = 3
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "xhs",
	Short: "Paced, challenge-aware Xiaohongshu automation",
	Long: `xhs drives a real browser session against Xiaohongshu.

Every navigation is paced to a human cadence, every page is checked for
security challenges, and every write action is counted against daily quotas.

Results are printed to stdout as JSON; progress and logs go to stderr.
Exit codes: 0 success, 1 failure, 3 security challenge.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			ui.SetColor(false)
		}
		if quiet {
			ui.SetQuietMode(true)
		}
		return loadConfig(cmd)
	},
}

// Execute runs the root command and exits with the code matching the outcome
func Execute(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	os.Exit(report(err))
}

// report prints the failure record for err and returns the process exit code
func report(err error) int {
	if err == nil {
		return exitOK
	}

	var printed *printedError
	if errors.As(err, &printed) {
		err = printed.err
	} else if printErr := emit(errs.NewFailureRecord(err)); printErr != nil {
		fmt.Fprintln(os.Stderr, printErr)
	}

	if isCancelled(err) {
		ui.PrintWarning("Interrupted")
	} else {
		ui.PrintError("Error", err)
	}

	if errs.IsChallenge(err) {
		return exitChallenge
	}
	return exitFailure
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "config file (default is ./.xhs.yaml or ~/.xiaohongshu/config.yaml)")
	flags.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")
	flags.BoolVarP(&quiet, "quiet", "q", false, "suppress all messages except errors")
	flags.BoolVar(&headless, "headless", true, "run the browser without a window")
	flags.DurationVar(&timeout, "timeout", 0, "default page operation timeout")
	flags.StringVar(&userDataDir, "user-data-dir", "", "persistent browser profile directory")
	flags.StringVar(&cookiePath, "cookies", "", "cookie file path")
	flags.StringVar(&strategyDoc, "strategy", "", "strategy document path")
	flags.StringVarP(&outputDir, "output", "o", "", "artifact directory (QR codes)")
	flags.Int64Var(&seed, "seed", 0, "seed for plan sampling")

	rootCmd.SetVersionTemplate(`xhs {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig merges the config file, environment and the flags the user set,
// then initializes the global logger
func loadConfig(cmd *cobra.Command) error {
	flags := make(map[string]interface{})
	changed := func(name string) bool { return cmd.Flags().Changed(name) }

	if changed("headless") {
		flags["headless"] = headless
	}
	if changed("timeout") {
		flags["timeout"] = timeout
	}
	if changed("user-data-dir") {
		flags["user-data-dir"] = userDataDir
	}
	if changed("cookies") {
		flags["cookies"] = cookiePath
	}
	if changed("strategy") {
		flags["strategy"] = strategyDoc
	}
	if changed("output") {
		flags["output"] = outputDir
	}
	if changed("seed") {
		flags["seed"] = seed
	}
	if changed("log-level") {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeValidation, "failed to load configuration", err)
	}
	if quiet && !changed("log-level") {
		cfg.Logging.Level = "error"
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	appConfig = cfg
	return nil
}

// emit prints a command result on stdout
func emit(v interface{}) error {
	pretty := appConfig == nil || appConfig.Output.Pretty
	return ui.PrintJSON(v, pretty)
}

// printedError marks a failure whose result document is already on stdout
type printedError struct {
	err error
}

func (e *printedError) Error() string { return e.err.Error() }

func (e *printedError) Unwrap() error { return e.err }

// isCancelled reports whether err came from an interrupted context
func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
