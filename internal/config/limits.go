package config

// Tree limits. Batch import holds its transaction open for the whole
// resolution loop, so the batch cap also bounds transaction duration.
const (
	// MaxNodeNameLength is the maximum display-name length for any node.
	MaxNodeNameLength = 255

	// DefaultMaxImportBatch caps the number of items in a single import.
	DefaultMaxImportBatch = 500
)
