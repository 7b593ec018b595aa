package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/common"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Response
		wantErr bool
	}{
		{
			name:    "plain JSON",
			content: `{"category": "meals", "confidence": 0.85, "rationale": "restaurant charge"}`,
			want:    Response{Category: "meals", Confidence: 0.85, Rationale: "restaurant charge"},
		},
		{
			name: "fenced JSON",
			content: "```json\n" +
				`{"category": "software_subscriptions", "confidence": 0.9, "rationale": "SaaS invoice"}` +
				"\n```",
			want: Response{Category: "software_subscriptions", Confidence: 0.9, Rationale: "SaaS invoice"},
		},
		{
			name: "JSON with attributes",
			content: `{"category": "meals", "confidence": 0.8, "rationale": "team lunch",
				"attributes": {"meal_type": "lunch"}}`,
			want: Response{
				Category:   "meals",
				Confidence: 0.8,
				Rationale:  "team lunch",
				Attributes: map[string]string{"meal_type": "lunch"},
			},
		},
		{
			name:    "free-form category name is normalized",
			content: `{"category": "Software & Subscriptions", "confidence": 0.7, "rationale": "x"}`,
			want:    Response{Category: "software_and_subscriptions", Confidence: 0.7, Rationale: "x"},
		},
		{
			name:    "confidence above one is clamped",
			content: `{"category": "meals", "confidence": 1.4, "rationale": "x"}`,
			want:    Response{Category: "meals", Confidence: 1, Rationale: "x"},
		},
		{
			name: "line format",
			content: "CATEGORY: travel_transport\n" +
				"CONFIDENCE: 0.75\n" +
				"RATIONALE: airline booking",
			want: Response{Category: "travel_transport", Confidence: 0.75, Rationale: "airline booking"},
		},
		{
			name: "line format with percent score",
			content: "CATEGORY: Meals\n" +
				"CONFIDENCE: 85%\n" +
				"RATIONALE: cafe",
			want: Response{Category: "meals", Confidence: 0.85, Rationale: "cafe"},
		},
		{
			name:    "line format without confidence",
			content: "CATEGORY: rent",
			want:    Response{Category: "rent"},
		},
		{
			name:    "prose with no category",
			content: "I am not sure how to categorize this transaction.",
			wantErr: true,
		},
		{
			name:    "empty content",
			content: "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponse(tt.content)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrMalformedResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"meals", "meals"},
		{"Meals", "meals"},
		{"Software & Subscriptions", "software_and_subscriptions"},
		{"travel-transport", "travel_transport"},
		{"  Professional  Services ", "professional_services"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeSlug(tt.in), "input %q", tt.in)
	}
}

func TestParseScore(t *testing.T) {
	assert.InDelta(t, 0.75, parseScore("0.75"), 1e-9)
	assert.InDelta(t, 0.85, parseScore("85%"), 1e-9)
	assert.InDelta(t, 0.9, parseScore("confidence: 0.9"), 1e-9)
	assert.Zero(t, parseScore("unknown"))
}
