package insights

import (
	"regexp"
	"strconv"
	"strings"

	"budgetme/internal/core"
)

// Free-text responses are structured with loose markdown-ish headers.
// Matching is case-insensitive and tolerates numbering, colons and
// surrounding decoration; a response with no recognizable headers at
// all is kept whole as the summary.
var (
	sectionRe = regexp.MustCompile(`(?im)^[#*\s\d.]*\b(summary|overview|recommendations?|risks?|risk assessment|opportunit(?:y|ies))\b[:\s]*$`)
	confRe    = regexp.MustCompile(`(?i)confidence[:\s]+([0-9]*\.?[0-9]+)\s*%?`)
)

// Parsed is a narrative split into its sections.
type Parsed struct {
	Summary         string
	Recommendations string
	Risk            string
	Opportunities   string
	Confidence      float64
}

// ParseNarrative extracts sections from a free-text insight response.
func ParseNarrative(text string) Parsed {
	p := Parsed{}
	if m := confRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			if v > 1 {
				v /= 100
			}
			p.Confidence = v
		}
	}

	idx := sectionRe.FindAllStringSubmatchIndex(text, -1)
	if len(idx) == 0 {
		p.Summary = strings.TrimSpace(text)
		return p
	}

	// Anything before the first header counts as summary.
	if lead := strings.TrimSpace(text[:idx[0][0]]); lead != "" {
		p.Summary = lead
	}

	for i, m := range idx {
		header := strings.ToLower(text[m[2]:m[3]])
		end := len(text)
		if i+1 < len(idx) {
			end = idx[i+1][0]
		}
		body := strings.TrimSpace(text[m[1]:end])
		if body == "" {
			continue
		}
		switch {
		case strings.HasPrefix(header, "summary"), strings.HasPrefix(header, "overview"):
			p.Summary = body
		case strings.HasPrefix(header, "recommendation"):
			p.Recommendations = body
		case strings.HasPrefix(header, "risk"):
			p.Risk = body
		case strings.HasPrefix(header, "opportunit"):
			p.Opportunities = body
		}
	}
	return p
}

// Insights converts the parsed sections into typed insight records,
// skipping sections the narrative did not include.
func (p Parsed) Insights() []core.Insight {
	var out []core.Insight
	if p.Summary != "" {
		out = append(out, core.Insight{Type: core.InsightTrend, Title: "Summary", Body: p.Summary})
	}
	if p.Risk != "" {
		out = append(out, core.Insight{Type: core.InsightRisk, Title: "Risk assessment", Body: p.Risk})
	}
	if p.Opportunities != "" {
		out = append(out, core.Insight{Type: core.InsightOpportunity, Title: "Opportunities", Body: p.Opportunities})
	}
	if p.Recommendations != "" {
		out = append(out, core.Insight{Type: core.InsightGoal, Title: "Recommendations", Body: p.Recommendations})
	}
	return out
}
