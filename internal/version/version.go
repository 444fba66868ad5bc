package version

// Version is the release version, overridden at build time with
// -ldflags "-X github.com/partio/partio-go/internal/version.Version=...".
var Version = "0.1.0-dev"
