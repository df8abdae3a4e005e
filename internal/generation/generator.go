package generation

import (
	"context"

	"github.com/google/uuid"
)

// Request describes one content-generation job: what kind of content to
// produce and the accumulated workflow context it should draw from.
type Request struct {
	// OwnerID identifies the requesting user, for auditing and logging
	OwnerID uuid.UUID

	// Kind names the content being produced (e.g., "listing_description",
	// "followup_messages")
	Kind string

	// Context carries the workflow's accumulated state: property
	// details, CMA results, scored leads, whatever earlier steps produced
	Context map[string]any
}

// Result holds the generated content keyed by output name.
type Result struct {
	Content map[string]any
}

// Generator defines the interface for generating listing and marketing
// content. This interface is the boundary between the workflow engine
// and external AI/LLM services.
type Generator interface {
	// GenerateListingContent produces content for the given request.
	// Returns an error if generation fails (see errors.go for the
	// specific types).
	GenerateListingContent(ctx context.Context, req Request) (*Result, error)
}
