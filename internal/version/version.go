package version

// Version is the current prskeet version.
// It must be bumped on every release.
const Version = "0.3.1"

// FullVersion returns the version with the v prefix.
func FullVersion() string {
	return "v" + Version
}
