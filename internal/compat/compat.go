package compat

// Version is the build version reported by this client. It is overridden at
// link time with -ldflags "-X github.com/parkdir/parkdir/internal/compat.Version=...".
var Version = "0.4.0"

// Level classifies a server's reported version against the local build
type Level int

const (
	// Unknown means the server has not reported a version (offline or not
	// yet fetched).
	Unknown Level = iota
	Compatible
	Incompatible
)

func (l Level) String() string {
	switch l {
	case Compatible:
		return "compatible"
	case Incompatible:
		return "incompatible"
	default:
		return "unknown"
	}
}

// Policy decides whether a server can be joined from this build.
type Policy struct {
	Local string
}

// NewPolicy creates a policy for the given local version. An empty string
// selects the compiled-in Version.
func NewPolicy(local string) Policy {
	if local == "" {
		local = Version
	}
	return Policy{Local: local}
}

// IsJoinable reports whether a server with the given version can be joined:
// unknown versions are allowed optimistically, anything else must match the
// local version exactly.
func (p Policy) IsJoinable(version string) bool {
	return version == "" || version == p.Local
}

// Compatible reports an exact version match. Unlike IsJoinable it is false
// for unknown versions; the sort order uses it.
func (p Policy) Compatible(version string) bool {
	return version == p.Local
}

// Classify returns the compatibility icon class for version.
func (p Policy) Classify(version string) Level {
	switch {
	case version == "":
		return Unknown
	case version == p.Local:
		return Compatible
	default:
		return Incompatible
	}
}
