package version

import "fmt"

// Set at build time:
//
//	go build -ldflags "-X github.com/pysugar/tekton-studio/internal/version.Version=v0.3.0" ./cmd/tekton
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

// String is the one-line form printed by `tekton version`.
func String() string {
	return fmt.Sprintf("tekton %s (commit %s, built %s)", Version, Commit, BuildTime)
}
