package types

// Model describes one model found in the model repository.
type Model struct {
	// Model name, the name of its directory in the repository.
	// example: t5-small
	Name string `json:"name" example:"t5-small"`
	// Version that will be served (highest numeric directory unless pinned).
	// example: 1
	Version string `json:"version" example:"1"`
	// All version directories found, ascending.
	Versions []string `json:"versions,omitempty"`
	// Backend plugin named in the model config.
	// example: summarizer
	Backend string `json:"backend" example:"summarizer"`
	// Absolute path of the model directory.
	// example: /srv/models/t5-small
	Path string `json:"path" example:"/srv/models/t5-small"`
	// Why the model cannot be loaded, if it cannot.
	Error string `json:"error,omitempty"`
}
