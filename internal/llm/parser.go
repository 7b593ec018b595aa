package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ledgerline/ledgerline/internal/common"
)

// ParseResponse extracts a structured categorization from model output.
// JSON is the expected format; a line-oriented fallback recovers from models
// that ignore formatting instructions. Unparseable content is an error the
// caller degrades to the miscellaneous fallback.
func ParseResponse(content string) (Response, error) {
	content = cleanMarkdownWrapper(content)

	var jsonResp struct {
		Category   string            `json:"category"`
		Confidence float64           `json:"confidence"`
		Rationale  string            `json:"rationale"`
		Attributes map[string]string `json:"attributes,omitempty"`
	}
	if err := json.Unmarshal([]byte(content), &jsonResp); err == nil && jsonResp.Category != "" {
		return Response{
			Category:   normalizeSlug(jsonResp.Category),
			Confidence: clampConfidence(jsonResp.Confidence),
			Rationale:  jsonResp.Rationale,
			Attributes: jsonResp.Attributes,
		}, nil
	}

	return parseLineFormat(content)
}

// parseLineFormat handles CATEGORY:/CONFIDENCE:/RATIONALE: style responses.
func parseLineFormat(content string) (Response, error) {
	var resp Response
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "CATEGORY:"):
			resp.Category = normalizeSlug(strings.TrimSpace(strings.TrimPrefix(line, "CATEGORY:")))
		case strings.HasPrefix(line, "CONFIDENCE:"):
			resp.Confidence = clampConfidence(parseScore(strings.TrimSpace(strings.TrimPrefix(line, "CONFIDENCE:"))))
		case strings.HasPrefix(line, "RATIONALE:"):
			resp.Rationale = strings.TrimSpace(strings.TrimPrefix(line, "RATIONALE:"))
		}
	}

	if resp.Category == "" {
		return Response{}, fmt.Errorf("%w: no category found in %q", common.ErrMalformedResponse, truncate(content, 120))
	}
	return resp, nil
}

// parseScore tolerates percentages and stray characters around a number.
func parseScore(s string) float64 {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	if strings.HasSuffix(s, "%") {
		if v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64); err == nil {
			return v / 100.0
		}
	}
	clean := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0
	}
	return v
}

// cleanMarkdownWrapper strips ```json fences the model may add.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		if len(lines) > 2 {
			content = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}
	return strings.TrimSpace(content)
}

// normalizeSlug maps free-form category names onto slug form.
func normalizeSlug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, "&", "and")
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return s
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
