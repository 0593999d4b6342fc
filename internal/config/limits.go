package config

const (
	// MaxNodeNameLength is the maximum length for node names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255) and provide
	// reasonable UX (names should be short and descriptive).
	MaxNodeNameLength = 255

	// MaxPathLength is the maximum length for full node paths.
	// Set to 1000 to allow deeply nested folder hierarchies without
	// letting paths grow without bound.
	MaxPathLength = 1000
)
