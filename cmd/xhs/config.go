package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/flyflypeng/xiaohongshu-skill/pkg/config"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/cookie"
	errs "github.com/flyflypeng/xiaohongshu-skill/pkg/errors"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/ui"
	"github.com/spf13/cobra"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files and the cookie passphrase",
	Long: `Manage xhs configuration.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (XHS_*), including values from .env files
  - Configuration file
  - Default values (lowest priority)`,
	// Config commands must work while the configuration is broken
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			ui.SetColor(false)
		}
		if quiet {
			ui.SetQuietMode(true)
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with every default",
	Long: `Write a configuration file holding every option at its default value.

The file is created as .xhs.yaml in the current directory unless a different
path is given with --config.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration from all sources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd); err != nil {
			return err
		}
		ui.PrintHighlight("Current Configuration")
		if configFile != "" {
			ui.PrintInfo("Configuration file", configFile)
		}
		return emit(appConfig)
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and check its paths",
	Long: `Validate the configuration from all sources.

This command checks:
  - YAML syntax
  - Value types and ranges
  - That the artifact and log directories can be created`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

var configPassphraseCmd = &cobra.Command{
	Use:   "passphrase",
	Short: "Store the cookie encryption passphrase in the system keychain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pass, err := ui.ReadSecret("Cookie passphrase: ")
		if err != nil {
			return err
		}
		if err := cookie.StorePassphrase(pass); err != nil {
			return err
		}
		ui.PrintSuccess("Passphrase stored in the system keychain")
		return emit(map[string]string{"status": "stored"})
	},
}

var configForgetCmd = &cobra.Command{
	Use:   "forget-passphrase",
	Short: "Remove the cookie encryption passphrase from the system keychain",
	Long: `Remove the cookie encryption passphrase from the system keychain.
Encrypted cookie files written with it can no longer be read.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cookie.ForgetPassphrase(); err != nil {
			return err
		}
		ui.PrintSuccess("Passphrase removed")
		return emit(map[string]string{"status": "removed"})
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configValidateCmd, configPassphraseCmd, configForgetCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = ".xhs.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		ui.PrintWarning("To overwrite, first remove the existing file", path)
		return errs.New(errs.ErrorTypeValidation, "configuration file already exists: "+path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created")
	ui.PrintInfo("Path", path)
	return emit(map[string]string{"status": "created", "path": path})
}

// validation is the result document of config validate
type validation struct {
	Valid    bool     `json:"valid"`
	File     string   `json:"file,omitempty"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	result := validation{File: configFile, Errors: []string{}, Warnings: []string{}}

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return reportValidation(result)
	}

	if err := os.MkdirAll(cfg.Output.ArtifactDirectory, 0755); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("cannot create artifact directory: %v", err))
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}

	if !cfg.Browser.Headless {
		result.Warnings = append(result.Warnings, "browser runs with a visible window")
	}
	if !cfg.Cookies.Encrypt {
		result.Warnings = append(result.Warnings, "cookies are stored unencrypted")
	}
	if cfg.Throttle.MinInterval < config.DefaultConfig().Throttle.MinInterval {
		result.Warnings = append(result.Warnings, "throttle min interval is below the default and raises challenge risk")
	}

	return reportValidation(result)
}

func reportValidation(result validation) error {
	result.Valid = len(result.Errors) == 0
	for _, w := range result.Warnings {
		ui.PrintWarning("Warning", w)
	}

	if err := emit(result); err != nil {
		return err
	}
	if !result.Valid {
		return &printedError{err: errs.New(errs.ErrorTypeValidation, "configuration has errors")}
	}
	ui.PrintSuccess("Configuration is valid")
	return nil
}
