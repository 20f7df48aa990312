package enrich

import (
	"regexp"
	"strconv"
	"strings"
)

// Suggestion is the untrusted partial medicine extracted from a label
// photo. It is merged into an add/edit form by the caller and never
// written to the store directly.
type Suggestion struct {
	Name         string   `json:"name,omitempty"`
	DosageAmount float64  `json:"dosage_amount,omitempty"`
	DosageUnit   string   `json:"dosage_unit,omitempty"`
	Type         string   `json:"type,omitempty"`
	Frequency    string   `json:"frequency,omitempty"`
	Times        []string `json:"times,omitempty"`
	Notes        string   `json:"notes,omitempty"`
}

// Empty reports whether nothing usable was extracted.
func (s *Suggestion) Empty() bool {
	return s.Name == "" && s.DosageAmount == 0 && len(s.Times) == 0
}

// Parser turns the normalized "key: value" text the extraction model is
// prompted to produce into a Suggestion. Unknown keys and junk lines are
// ignored.
type Parser struct {
	dosagePattern *regexp.Regexp
	timePattern   *regexp.Regexp
	typeKeywords  map[string]string
}

// NewParser creates a label text parser.
func NewParser() *Parser {
	return &Parser{
		dosagePattern: regexp.MustCompile(`(?i)([\d.]+)\s*(mg|mcg|ml|gr|g|iu|tablet|capsule|drop|puff)s?\b`),
		timePattern:   regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`),
		typeKeywords: map[string]string{
			"tablet":    "tablet",
			"capsule":   "capsule",
			"syrup":     "syrup",
			"suspension": "syrup",
			"injection": "injection",
			"ampoule":   "injection",
			"drop":      "drops",
			"drops":     "drops",
			"cream":     "cream",
			"gel":       "cream",
			"spray":     "spray",
		},
	}
}

// Parse extracts suggestion fields from normalized label text.
func (p *Parser) Parse(text string) *Suggestion {
	suggestion := &Suggestion{}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if value == "" || strings.EqualFold(value, "unknown") {
			continue
		}

		switch key {
		case "name", "medicine", "medication":
			suggestion.Name = value
		case "dosage", "dose", "strength":
			p.parseDosage(value, suggestion)
		case "type", "form":
			p.parseType(value, suggestion)
		case "frequency":
			suggestion.Frequency = normalizeFrequency(value)
		case "times", "time", "schedule":
			// The time pattern needs the raw line, "Times: 08:00, 20:00"
			// would otherwise lose its first match to the key cut.
			suggestion.Times = p.parseTimes(line)
		case "notes", "instructions":
			suggestion.Notes = value
		}
	}

	return suggestion
}

func (p *Parser) parseDosage(value string, suggestion *Suggestion) {
	match := p.dosagePattern.FindStringSubmatch(value)
	if match == nil {
		return
	}
	amount, err := strconv.ParseFloat(match[1], 64)
	if err != nil || amount < 0 {
		return
	}
	suggestion.DosageAmount = amount
	suggestion.DosageUnit = strings.ToLower(match[2])
}

func (p *Parser) parseType(value string, suggestion *Suggestion) {
	lower := strings.ToLower(value)
	for keyword, typ := range p.typeKeywords {
		if strings.Contains(lower, keyword) {
			suggestion.Type = typ
			return
		}
	}
}

func (p *Parser) parseTimes(line string) []string {
	var times []string
	seen := make(map[string]bool)
	for _, match := range p.timePattern.FindAllStringSubmatch(line, -1) {
		hour, _ := strconv.Atoi(match[1])
		minute, _ := strconv.Atoi(match[2])
		if hour > 23 || minute > 59 {
			continue
		}
		formatted := match[0]
		if len(match[1]) == 1 {
			formatted = "0" + formatted
		}
		if !seen[formatted] {
			seen[formatted] = true
			times = append(times, formatted)
		}
	}
	return times
}

func normalizeFrequency(value string) string {
	lower := strings.ToLower(value)
	switch {
	case strings.Contains(lower, "week"):
		return "weekly"
	case strings.Contains(lower, "month"):
		return "monthly"
	case strings.Contains(lower, "day") || strings.Contains(lower, "daily"):
		return "daily"
	default:
		return "custom"
	}
}
