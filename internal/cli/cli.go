package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/vk/cytograph/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("cytograph", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
cytograph - a declarative gating-template engine for population hierarchies.

Usage:
  cytograph [options] [TEMPLATE_PATH]

Arguments:
  TEMPLATE_PATH
    Path to a .csv or .hcl gating template.

Options:
`)
		flagSet.PrintDefaults()
	}

	templateFlag := flagSet.String("template", "", "Path to the gating template.")
	tFlag := flagSet.String("t", "", "Path to the gating template (shorthand).")
	dataFlag := flagSet.String("data", "", "Directory of per-sample CSV event files. Omit to stop after the traversal plan.")
	strategyFlag := flagSet.String("strategy", "none", "Execution strategy. Options: 'none', 'multicore' or 'cluster'.")
	workersFlag := flagSet.Int("workers", 4, "Number of concurrent workers for the multicore strategy.")
	clusterFlag := flagSet.String("cluster", "", "Comma-separated socket.io worker URLs for the cluster strategy.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	path := ""
	if *templateFlag != "" {
		path = *templateFlag
	} else if *tFlag != "" {
		path = *tFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}

	if path == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	strategy := strings.ToLower(*strategyFlag)
	switch strategy {
	case "none", "multicore", "cluster":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid strategy: must be 'none', 'multicore', or 'cluster'"}
	}

	var clusterWorkers []string
	for _, u := range strings.Split(*clusterFlag, ",") {
		if u = strings.TrimSpace(u); u != "" {
			clusterWorkers = append(clusterWorkers, u)
		}
	}

	config, err := app.NewConfig(app.Config{
		TemplatePath:   path,
		DataPath:       *dataFlag,
		Strategy:       strategy,
		Workers:        *workersFlag,
		ClusterWorkers: clusterWorkers,
		LogFormat:      logFormat,
		LogLevel:       logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return config, false, nil
}
