package version

// Version is overridden at build time with -ldflags "-X wotcache/internal/version.Version=...".
var Version = "dev"
