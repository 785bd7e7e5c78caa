package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/msto63/condparse/internal/condparse/service"
	"github.com/msto63/condparse/pkg/core/config"
	cperrors "github.com/msto63/condparse/pkg/core/errors"
	cplog "github.com/msto63/condparse/pkg/core/log"
	"github.com/msto63/condparse/pkg/core/logging"
)

// errReported marks errors that were already printed to the user
var errReported = errors.New("error already reported")

// options holds the persistent flags and the loaded configuration
type options struct {
	cfgFile  string
	verbose  bool
	logLevel string
	cfg      *config.Config
	stderr   io.Writer
}

// NewRootCommand builds the complete command tree
func NewRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "condparse",
		Short: "condparse - Parser für MSBuild-Bedingungsausdrücke",
		Long: `condparse zerlegt MSBuild-artige Bedingungsausdrücke wie

  '$(Configuration)|$(Platform)'=='Debug|AnyCPU'

in einen Syntaxbaum aus Strings, $(...)-Auswertungen, Typreferenzen,
Operatoren und Leerraum.

Befehle:
  parse    - Ausdruck parsen und Baum ausgeben
  repl     - Interaktiver Modus mit Live-Parsing
  serve    - gRPC- und HTTP/WebSocket-Server starten
  rules    - Verfügbare Grammatikregeln auflisten
  config   - Effektive Konfiguration anzeigen
  version  - Versionsinformationen`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "Config-Datei (default: $CONDPARSE_CONFIG oder ./configs/condparse.toml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose Output (Log-Level debug)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log-Level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(
		newParseCmd(opts),
		newReplCmd(opts),
		newServeCmd(opts),
		newRulesCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the root command and prints errors not yet reported
func Execute() error {
	rootCmd := NewRootCommand()
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errReported) {
		printError(rootCmd.ErrOrStderr(), err)
	}
	return err
}

// ExitCode maps a command error to a process exit code: 0 on success,
// 2 for syntax errors and 1 otherwise
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case cperrors.CodeOf(err) == cperrors.CodeSyntax:
		return 2
	default:
		return 1
	}
}

// load reads the configuration and sets up logging
func (o *options) load(stderr io.Writer) error {
	cfg, err := config.LoadOrDefault(o.cfgFile)
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.stderr = stderr
	o.applyLogging(cfg)
	return nil
}

// applyLogging configures the logging factory from cfg. Flags take
// precedence over the configured level.
func (o *options) applyLogging(cfg *config.Config) {
	level := cfg.General.LogLevel
	if o.verbose {
		level = "debug"
	}
	if o.logLevel != "" {
		level = o.logLevel
	}

	lc := logging.LoggerConfig{
		ServiceName: cfg.General.Name,
		Level:       level,
		Format:      cfg.General.LogFormat,
		Output:      o.stderr,
	}
	logging.Configure(lc)
	cplog.SetDefault(logging.NewLogger(lc))
}

// configPath returns the file the configuration was loaded from, or ""
// when the defaults are in use
func (o *options) configPath() string {
	if o.cfgFile != "" {
		return o.cfgFile
	}
	return config.Find()
}

// newService creates a local parse service from the loaded configuration
func (o *options) newService(name string) (*service.Service, error) {
	cfg := service.ConfigFrom(o.cfg)
	cfg.Logger = logging.New(name)
	return service.NewService(cfg)
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Fehler: %v\n", err)
}

// reported wraps an error that was already shown so Execute stays quiet
func reported(err error) error {
	return &reportedError{err: err}
}

type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() []error { return []error{e.err, errReported} }

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
