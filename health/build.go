package health

import (
	"fmt"
	"os"
	"runtime"

	"github.com/voyagekit/tripcache/types"
)

// BuildVersion assembles version metadata from the build environment.
// Values are injected by CI through environment variables; a local build
// reports "dev".
func BuildVersion() types.VersionInfo {
	version := envOrDefault("BUILD_VERSION", "dev")
	commit := envOrDefault("BUILD_COMMIT", "unknown")

	return types.VersionInfo{
		Version: version,
		BuildInfo: fmt.Sprintf("%s-%s %s %s/%s",
			version, shortCommit(commit), runtime.Version(), runtime.GOOS, runtime.GOARCH),
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}
