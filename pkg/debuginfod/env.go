package debuginfod

import "os"

// URLsEnv is the environment variable the native library reads for its
// space-separated list of debuginfod servers. Without it every find call
// fails with ENOSYS.
const URLsEnv = "DEBUGINFOD_URLS"

// DefaultURLs is the elfutils federating server, a reasonable fallback
// when the caller has no server of their own.
const DefaultURLs = "https://debuginfod.elfutils.org/"

// EnsureURLs sets URLsEnv to DefaultURLs when it is unset or empty and
// returns a function that restores the previous state of the variable.
// When the variable is already set, restore is a no-op. The library never
// calls this itself; it is for surrounding applications that want the
// fallback without permanently mutating their process environment.
func EnsureURLs() (restore func()) {
	if os.Getenv(URLsEnv) != "" {
		return func() {}
	}
	prev, had := os.LookupEnv(URLsEnv)
	os.Setenv(URLsEnv, DefaultURLs)
	return func() {
		if had {
			os.Setenv(URLsEnv, prev)
		} else {
			os.Unsetenv(URLsEnv)
		}
	}
}
