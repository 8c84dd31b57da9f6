package types

// Version is the canonical project version.
// The CLI, the artifact document and the completion event share this
// version per the lockstep versioning policy.
const Version = "0.3.0"

// DocumentVersion is stamped into structured (json, msgpack) artifacts and
// into completion events. It tracks Version.
const DocumentVersion = Version
