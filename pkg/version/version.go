package version

// Version is the release version, overridable with
// -ldflags "-X flighttrack/pkg/version.Version=...".
var Version = "v0.3.1"
