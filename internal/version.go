package internal

// Version is the node version, overridden at build time with
// -ldflags "-X github.com/vocdoni/acpoll/internal.Version=<version>".
var Version = "dev"
