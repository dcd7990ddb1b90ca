// Package buildinfo holds build-time metadata injected via -ldflags.
package buildinfo

// BuildTag names the bot build reported by GET /api/webhook.
const BuildTag = "kuwait-igcse-portal-v1.0"

// Version is the semantic version or tag for this build.
// Inject via: -X github.com/kwportal/igcse-tutor-bot/internal/buildinfo.Version=...
var Version = ""

// Commit is the git commit SHA for this build.
// Inject via: -X github.com/kwportal/igcse-tutor-bot/internal/buildinfo.Commit=...
var Commit = ""

// BuildDate is the RFC3339 build timestamp.
// Inject via: -X github.com/kwportal/igcse-tutor-bot/internal/buildinfo.BuildDate=...
var BuildDate = ""

// Release returns the identifier reported to Sentry: Version when injected,
// otherwise BuildTag.
func Release() string {
	if Version != "" {
		return Version
	}
	return BuildTag
}
