package ir

// Version constants for the flat format and tool.
const (
	// FormatVersion is the flat wire format version.
	FormatVersion = "1"

	// ToolVersion is the flatkv release version.
	ToolVersion = "0.1.0"
)
