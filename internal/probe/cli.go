package probe

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/okian/imagecatalog/pkg/logger"
	"github.com/spf13/pflag"
)

// Default configuration constants.
const (
	DefaultBaseURL = "http://localhost:9080"
	DefaultTimeout = 10 * time.Second
	defaultWorkers = 2 // multiplier for runtime.NumCPU()
)

// Flags are the command line options of the probe tool.
type Flags struct {
	Config    Config
	LogFormat string
	Help      bool
}

// NewFlagSet binds the probe options to a pflag set.
func NewFlagSet(name string, f *Flags) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringVarP(&f.Config.BaseURL, "base-url", "u", DefaultBaseURL, "Base URL of the catalog service")
	fs.StringSliceVarP(&f.Config.OSes, "os", "o", []string{"linux"}, "Operating systems to list (repeat or comma separate)")
	fs.IntVarP(&f.Config.Workers, "workers", "w", runtime.NumCPU()*defaultWorkers, "Number of concurrent redirect checks")
	fs.DurationVarP(&f.Config.Timeout, "timeout", "t", DefaultTimeout, "HTTP request timeout")
	fs.BoolVarP(&f.Config.Verbose, "verbose", "v", false, "Log every checked link")
	fs.StringVar(&f.LogFormat, "log-format", logger.FormatText, "Log format: text or json")
	fs.BoolVarP(&f.Help, "help", "h", false, "Show help")
	return fs
}

// ParseFlags parses args into Flags.
func ParseFlags(name string, args []string) (*Flags, *pflag.FlagSet, error) {
	f := &Flags{}
	fs := NewFlagSet(name, f)
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	if f.Config.Workers < 1 {
		return nil, fs, fmt.Errorf("--workers must be positive, got %d", f.Config.Workers)
	}
	if len(f.Config.OSes) == 0 {
		return nil, fs, fmt.Errorf("--os must name at least one operating system")
	}
	return f, fs, nil
}

// SetupLogging initializes the logger for the probe.
func SetupLogging(format string, verbose bool) error {
	if err := logger.InitWithFormat(format); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the probe tool.
func ShowHelp(w io.Writer, fs *pflag.FlagSet) {
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintf(w, `Catalog Probe
=============

Lists each operating system and checks that every valid entry's link
answers with a redirect.

Usage:
  catalog-probe [options]

Options:
%s
Examples:
  catalog-probe --os linux,windows
  catalog-probe -u http://localhost:8080 -w 16 --verbose
`, fs.FlagUsages())
}
