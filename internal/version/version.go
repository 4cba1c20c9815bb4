package version

// Version is set at build time with
// -ldflags "-X github.com/livp123/authguard/internal/version.Version=v1.2.3".
// Version 在构建时通过 -ldflags 设置。
var Version = "dev"

// Commit is the git revision the binary was built from, if known.
var Commit = ""

// String returns the version with the commit appended when it is set.
func String() string {
	if Commit == "" {
		return Version
	}
	return Version + " (" + Commit + ")"
}
