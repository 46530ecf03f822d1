// # internal/shared/version/version.go
package version

// Version is overridden at build time with -ldflags "-X nekoscript/internal/shared/version.Version=...".
var Version = "1.2.0"
