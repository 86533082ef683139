package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/common/version"
	"golang.org/x/sys/unix"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/debugtools/debuginfod/pkg/debuginfod"
)

var cfg struct {
	verbose  bool
	progress bool
	urls     string
}

var logger log.Logger = log.NewLogfmtLogger(os.Stderr)

func main() {
	app := kingpin.New(filepath.Base(os.Args[0]),
		"Query debuginfod servers for debug info, executables, and source files by build ID.").UsageWriter(os.Stdout)
	app.Version(version.Print("debuginfod-find"))
	app.HelpFlag.Short('h')
	app.Flag("verbose", "Route libdebuginfod's verbose output to stderr and enable debug logging.").Short('v').Default("0").BoolVar(&cfg.verbose)
	app.Flag("progress", "Print download progress to stderr.").BoolVar(&cfg.progress)
	app.Flag("urls", "Override DEBUGINFOD_URLS for this invocation.").StringVar(&cfg.urls)

	debuginfoCmd := app.Command("debuginfo", "Retrieve the debug information for a build ID.")
	debuginfoTarget := debuginfoCmd.Arg("buildid-or-path", "Hex build ID, or path to an ELF binary to read it from.").Required().String()

	executableCmd := app.Command("executable", "Retrieve the executable for a build ID.")
	executableTarget := executableCmd.Arg("buildid-or-path", "Hex build ID, or path to an ELF binary to read it from.").Required().String()

	sourceCmd := app.Command("source", "Retrieve one source file of the binary with the given build ID.")
	sourceTarget := sourceCmd.Arg("buildid-or-path", "Hex build ID, or path to an ELF binary to read it from.").Required().String()
	sourcePath := sourceCmd.Arg("path", "Absolute source path as recorded in the binary's DWARF info.").Required().String()

	parsedCmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	if !cfg.verbose {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	switch parsedCmd {
	case debuginfoCmd.FullCommand():
		os.Exit(checkError(find(actionDebuginfo, *debuginfoTarget, "")))
	case executableCmd.FullCommand():
		os.Exit(checkError(find(actionExecutable, *executableTarget, "")))
	case sourceCmd.FullCommand():
		os.Exit(checkError(find(actionSource, *sourceTarget, *sourcePath)))
	default:
		level.Error(logger).Log("msg", "unknown command", "cmd", parsedCmd)
		os.Exit(1)
	}
}

func checkError(err error) int {
	if err == nil {
		return 0
	}
	var opErr *debuginfod.OperationFailedError
	if errors.As(err, &opErr) {
		fmt.Fprintf(os.Stderr, "error: query failed: %s (%s)\n",
			unix.ErrnoName(opErr.Errno), opErr.Errno.Error())
		return 1
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	return 1
}
