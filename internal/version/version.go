// Package version carries build metadata, set with -ldflags -X at link time.
package version

import "fmt"

var (
	Version   = "dev"
	GitSHA    = "unknown"
	BuildTime = "unknown"
)

// String is the one-line form printed by -version and the status page.
func String() string {
	return fmt.Sprintf("scanview %s (git %s, built %s)", Version, GitSHA, BuildTime)
}
