// Command missivd serves the missiv HTTP API over a local SQLite database.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/tOgg1/missiv/internal/config"
	"github.com/tOgg1/missiv/internal/logging"
	"github.com/tOgg1/missiv/internal/server"
)

// Set at link time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type options struct {
	hostname   string
	port       int
	configFile string
	envFile    string
	dbPath     string
	logLevel   string
	logFormat  string
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := pflag.NewFlagSet("missivd", pflag.ContinueOnError)
	fs.StringVar(&o.hostname, "hostname", "", "listen host (default http.host, 127.0.0.1)")
	fs.IntVarP(&o.port, "port", "p", 0, "listen port (default http.port, 8480)")
	fs.StringVarP(&o.configFile, "config", "c", "", "config file (default $XDG_CONFIG_HOME/missiv/config.yaml)")
	fs.StringVar(&o.envFile, "env-file", ".env", "dotenv file read before the config")
	fs.StringVar(&o.dbPath, "db", "", "database path override")
	fs.StringVar(&o.logLevel, "log-level", "", "log level override (trace, debug, info, warn, error)")
	fs.StringVar(&o.logFormat, "log-format", "", "log format override (json, console)")
	return o, fs.Parse(args)
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "missivd: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "missivd: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	// Values already in the environment win over the dotenv file.
	if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read %s: %w", opts.envFile, err)
	}

	loader := config.NewLoader()
	loader.SetConfigFile(opts.configFile)
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	override(&cfg.Logging.Level, opts.logLevel)
	override(&cfg.Logging.Format, opts.logFormat)
	override(&cfg.Database.Path, opts.dbPath)

	var logOut io.Writer = os.Stderr
	if cfg.Logging.File != "" {
		file, err := logging.OpenFile(cfg.Logging.File)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer file.Close()
		logOut = file
	}
	logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       logOut,
		EnableCaller: cfg.Logging.EnableCaller,
	})
	logger := logging.Component("missivd")
	logger.Info().
		Str("version", version).
		Str("commit", commit).
		Str("built", date).
		Str("config_file", loader.ConfigFileUsed()).
		Msg("starting")

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	daemon, err := server.New(cfg, logger, server.Options{Hostname: opts.hostname, Port: opts.port})
	if err != nil {
		return err
	}
	defer daemon.Close()

	return daemon.Run(ctx)
}

func override(field *string, value string) {
	if value != "" {
		*field = value
	}
}
