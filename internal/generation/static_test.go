package generation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticGenerator(t *testing.T) {
	t.Parallel()

	gen := NewStaticGenerator()

	t.Run("listing content includes the address", func(t *testing.T) {
		t.Parallel()

		result, err := gen.GenerateListingContent(context.Background(), Request{
			Kind:    "listing_description",
			Context: map[string]any{"address": "12 Oak St", "suggested_price": 500000.0},
		})
		require.NoError(t, err)

		desc, ok := result.Content["listing_description"].(string)
		require.True(t, ok)
		assert.Contains(t, desc, "12 Oak St")
		assert.Contains(t, result.Content, "price_highlight")
	})

	t.Run("followup messages", func(t *testing.T) {
		t.Parallel()

		result, err := gen.GenerateListingContent(context.Background(), Request{
			Kind:    "followup_messages",
			Context: map[string]any{"address": "12 Oak St"},
		})
		require.NoError(t, err)

		messages, ok := result.Content["followup_messages"].([]any)
		require.True(t, ok)
		assert.NotEmpty(t, messages)
	})

	t.Run("missing address falls back to a generic phrase", func(t *testing.T) {
		t.Parallel()

		result, err := gen.GenerateListingContent(context.Background(), Request{
			Kind: "listing_description",
		})
		require.NoError(t, err)

		desc := result.Content["listing_description"].(string)
		assert.Contains(t, desc, "the property")
	})
}
