package config

// Version is the dashsync binary version.
// Set at build time via: -ldflags "-X github.com/persistorai/dashsync/internal/config.Version=<tag>"
// Defaults to "dev" when built without ldflags.
var Version = "dev"
