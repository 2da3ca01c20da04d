package catalog

import "context"

// Catalog is the curated category and color reference the frontend builds
// its pickers from. A single versioned document replaces it wholesale.
type Catalog struct {
	Version    string   `json:"version"`
	Categories []string `json:"categories"`
	Colors     []string `json:"colors"`
}

type Service interface {
	Start(ctx context.Context)
	Categories() []string
	Colors() []string
	Version() string
}
