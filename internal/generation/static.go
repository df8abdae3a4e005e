package generation

import (
	"context"
	"fmt"
)

// StaticGenerator produces deterministic placeholder content from the
// workflow context. It stands in for the LLM-backed generator when no
// API key is configured, so local and test environments can run full
// packages without external calls.
type StaticGenerator struct{}

// NewStaticGenerator creates a StaticGenerator.
func NewStaticGenerator() *StaticGenerator {
	return &StaticGenerator{}
}

// GenerateListingContent builds templated content for the requested kind.
func (g *StaticGenerator) GenerateListingContent(ctx context.Context, req Request) (*Result, error) {
	address, _ := req.Context["address"].(string)
	if address == "" {
		address = "the property"
	}

	switch req.Kind {
	case "followup_messages":
		return &Result{Content: map[string]any{
			"followup_messages": []any{
				fmt.Sprintf("Hi! Just checking in about %s. Would you like to schedule a viewing?", address),
				fmt.Sprintf("New activity on %s this week. Happy to share the details.", address),
			},
		}}, nil

	default:
		content := map[string]any{
			"listing_description": fmt.Sprintf(
				"Welcome to %s. This well-maintained property offers comfortable living in a sought-after location.",
				address,
			),
			"marketing_headline": fmt.Sprintf("Just Listed: %s", address),
		}
		if price, ok := req.Context["suggested_price"]; ok {
			content["price_highlight"] = fmt.Sprintf("Offered at an attractive price point of %v.", price)
		}
		return &Result{Content: content}, nil
	}
}
