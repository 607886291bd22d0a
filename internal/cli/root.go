// Package cli implements the missiv command line.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tOgg1/missiv/internal/config"
	"github.com/tOgg1/missiv/internal/logging"
	"github.com/tOgg1/missiv/internal/models"
)

// Exit codes.
const (
	ExitCodeFailure = 1
	ExitCodeUsage   = 2
)

// ExitError carries a process exit code.
type ExitError struct {
	Code    int
	Err     error
	Printed bool
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Exitf builds an ExitError from a format string.
func Exitf(code int, format string, args ...any) error {
	return &ExitError{Code: code, Err: fmt.Errorf(format, args...)}
}

func usageError(cmd *cobra.Command, msg string) error {
	return &ExitError{Code: ExitCodeUsage, Err: fmt.Errorf("%s (see '%s --help')", msg, cmd.CommandPath())}
}

var (
	cfgFile    string
	dbPath     string
	deskFlag   string
	jsonOutput bool
	logLevel   string

	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "missiv",
	Short:         "Desk-to-desk messaging",
	Long:          "missiv sends mivs between desks and sorts them into IN, PENDING, SENT and ARCHIVED baskets.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/missiv/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&deskFlag, "desk", "", "acting desk id (default $MISSIV_DESK)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging level (debug, info, warn, error)")
}

// Execute runs the root command.
func Execute(version string) error {
	rootCmd.Version = version
	return rootCmd.Execute()
}

func initConfig() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return Exitf(ExitCodeFailure, "load config: %v", err)
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	} else if cfg.Logging.Level == "info" {
		// Keep interactive output clean unless asked.
		cfg.Logging.Level = "warn"
	}
	logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Format:       "console",
		Output:       os.Stderr,
		EnableCaller: cfg.Logging.EnableCaller,
	})
	appConfig = cfg
	return nil
}

// GetConfig returns the loaded configuration.
func GetConfig() *config.Config {
	return appConfig
}

// IsJSONOutput reports whether --json was given.
func IsJSONOutput() bool {
	return jsonOutput
}

// actingDesk returns the desk from --desk or MISSIV_DESK, normalized.
func actingDesk(cmd *cobra.Command) (string, error) {
	raw := strings.TrimSpace(deskFlag)
	if raw == "" {
		raw = strings.TrimSpace(os.Getenv("MISSIV_DESK"))
	}
	if raw == "" {
		return "", usageError(cmd, "--desk or MISSIV_DESK is required")
	}
	desk, err := models.NormalizeDeskID(raw)
	if err != nil {
		return "", Exitf(ExitCodeUsage, "invalid desk %q: %v", raw, err)
	}
	return desk, nil
}

// commandError converts a service error into an ExitError.
func commandError(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	code := ExitCodeFailure
	if models.ErrorCode(err) == models.CodeValidation {
		code = ExitCodeUsage
	}
	return &ExitError{Code: code, Err: err}
}
