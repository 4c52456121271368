package convoflow

// Version is the library version, overridable at build time via
// -ldflags "-X github.com/convoflow/convoflow.Version=...".
var Version = "0.1.0"
