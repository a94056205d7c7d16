package version

// Version is the client version, overridden at build time via
// -ldflags "-X github.com/kagent-dev/kagent/go-chat/pkg/version.Version=...".
var Version = "dev"
