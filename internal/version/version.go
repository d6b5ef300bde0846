// Package version holds build metadata injected via ldflags.
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// UserAgent identifies outgoing API calls, e.g. "limitwatch/1.4.0 (abc123)".
func UserAgent() string {
	return "limitwatch/" + Version + " (" + Commit + ")"
}
