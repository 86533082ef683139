package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/grafana/dskit/runutil"

	"github.com/debugtools/debuginfod/pkg/debuginfod"
	"github.com/debugtools/debuginfod/pkg/elfinfo"
)

const (
	actionDebuginfo  = "debuginfo"
	actionExecutable = "executable"
	actionSource     = "source"
)

func find(action, target, sourcePath string) error {
	id, err := resolveBuildID(target)
	if err != nil {
		return err
	}

	restoreEnv := serverURLs()
	defer restoreEnv()

	client := debuginfod.New(debuginfod.Config{Logger: logger})
	return client.Do(func(c *debuginfod.Client) error {
		if cfg.verbose {
			if err := c.SetVerboseFd(int(os.Stderr.Fd())); err != nil && !errors.Is(err, debuginfod.ErrUnsupported) {
				return err
			}
		}
		if cfg.progress {
			if err := c.SetProgressFn(printProgress); err != nil {
				return err
			}
		}

		var res debuginfod.LookupResult
		var err error
		switch action {
		case actionDebuginfo:
			res, err = c.FindDebuginfo(id)
		case actionExecutable:
			res, err = c.FindExecutable(id)
		case actionSource:
			res, err = c.FindSource(id, sourcePath)
		}
		if err != nil {
			return err
		}

		// The fd is ours now; we only wanted the cache path, so close it
		// once the path is printed.
		artifact := os.NewFile(uintptr(res.FD), string(res.Path))
		defer runutil.CloseWithLogOnErr(logger, artifact, "closing artifact")
		fmt.Println(string(res.Path))
		return nil
	})
}

// resolveBuildID treats the argument as a hex build ID when it decodes as
// one, and as a path to an ELF binary otherwise.
func resolveBuildID(target string) (debuginfod.BuildID, error) {
	if id, err := debuginfod.ParseBuildID(target); err == nil {
		return id, nil
	}
	eid, err := elfinfo.File(target)
	if err != nil {
		return debuginfod.BuildID{}, fmt.Errorf("%s is neither a hex build ID nor a readable ELF binary: %w", target, err)
	}
	if !eid.GNU() {
		return debuginfod.BuildID{}, fmt.Errorf("%s carries a Go build ID, debuginfod needs a GNU build ID", target)
	}
	return debuginfod.ParseBuildID(eid.ID)
}

// serverURLs applies --urls for the run, or falls back to the elfutils
// federating server when the environment has none configured.
func serverURLs() (restore func()) {
	if cfg.urls == "" {
		return debuginfod.EnsureURLs()
	}
	prev, had := os.LookupEnv(debuginfod.URLsEnv)
	os.Setenv(debuginfod.URLsEnv, cfg.urls)
	return func() {
		if had {
			os.Setenv(debuginfod.URLsEnv, prev)
		} else {
			os.Unsetenv(debuginfod.URLsEnv)
		}
	}
}

func printProgress(downloaded, total int64) bool {
	if total > 0 {
		fmt.Fprintf(os.Stderr, "\rdownloading %d/%d bytes", downloaded, total)
	} else {
		fmt.Fprintf(os.Stderr, "\rdownloading %d bytes", downloaded)
	}
	return false
}
