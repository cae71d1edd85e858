package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tabdiff/internal/config"
	"github.com/JonMunkholm/tabdiff/internal/logging"
	"github.com/JonMunkholm/tabdiff/internal/table"
)

var (
	envFile   string
	encoding  string
	sheet     string
	delimiter string
	logLevel  string

	// cfg is loaded before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "tabdiff",
	Short: "Match columns between two tables and diff their values",
	Long: `tabdiff loads two CSV, Excel or JSON files, proposes which columns
correspond, and reports the values each mapped column pair shares and the
values found on only one side.

Configuration comes from the environment (and a .env file when present).`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&envFile, "env-file", "", "env file to load (default: .env when present)")
	pf.StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	pf.StringVar(&encoding, "encoding", "", "text encoding of input files (e.g. windows-1252)")
	pf.StringVar(&sheet, "sheet", "", "worksheet to read from xlsx inputs (default: first)")
	pf.StringVar(&delimiter, "delimiter", "", "field delimiter for text inputs (default: sniffed)")

	rootCmd.AddCommand(suggestCmd, compareCmd, detectCmd, serveCmd, migrateCmd, mappingsCmd, tasksCmd)
}

// setup loads the env file, configuration and logger.
func setup(cmd *cobra.Command, args []string) error {
	var envErr error
	if envFile != "" {
		envErr = godotenv.Overload(envFile)
		if envErr != nil {
			return envErr
		}
	} else {
		envErr = godotenv.Overload()
	}

	c, err := config.Load()
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	logging.Setup(c.Logging.Level, c.Logging.Format)
	cfg = c

	switch {
	case envErr == nil:
		slog.Debug("loaded .env file (overwriting existing env vars)")
	case errors.Is(envErr, fs.ErrNotExist):
		slog.Debug("no .env file found, using environment variables")
	default:
		slog.Warn("could not read .env file", "error", envErr)
	}
	return nil
}

// loadOptions turns the input flags into loader options.
func loadOptions() ([]table.LoadOption, error) {
	var opts []table.LoadOption
	if encoding != "" {
		opts = append(opts, table.WithEncoding(encoding))
	}
	if sheet != "" {
		opts = append(opts, table.WithSheet(sheet))
	}
	if delimiter != "" {
		d := delimiter
		if d == `\t` {
			d = "\t"
		}
		r, size := utf8.DecodeRuneInString(d)
		if size != len(d) {
			return nil, errors.New("--delimiter must be a single character")
		}
		opts = append(opts, table.WithDelimiter(r))
	}
	return opts, nil
}
