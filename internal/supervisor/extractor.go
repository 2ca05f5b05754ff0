package supervisor

import (
	"regexp"
	"strings"

	"github.com/easyislanders/concierge/internal/domain"
)

// SlotExtractor pulls structured slot values out of free text. Extraction is
// deliberately conservative: a slot is only emitted when the utterance gives
// real evidence for it, each with a confidence reflecting how direct that
// evidence was.
type SlotExtractor struct{}

// NewSlotExtractor creates a new slot extractor
func NewSlotExtractor() *SlotExtractor {
	return &SlotExtractor{}
}

// Northern Cyprus localities the listing repository indexes by
var knownLocations = []string{
	"kyrenia", "girne",
	"nicosia", "lefkosa",
	"famagusta", "magusa",
	"iskele", "lapta", "alsancak", "catalkoy", "esentepe", "bellapais",
	"lefke", "guzelyurt", "karpaz", "bogaz", "ercan",
}

// Aliases map localized spellings onto the canonical index key
var locationAliases = map[string]string{
	"girne":   "kyrenia",
	"lefkosa": "nicosia",
	"magusa":  "famagusta",
}

var (
	budgetRe = regexp.MustCompile(`(\d[\d,.]*)\s*(pounds?|gbp|sterling|euros?|eur|dollars?|usd|tl|lira|try|£|€|\$)?`)

	currencyWords = map[string]string{
		"pound": "GBP", "pounds": "GBP", "gbp": "GBP", "sterling": "GBP", "£": "GBP",
		"euro": "EUR", "euros": "EUR", "eur": "EUR", "€": "EUR",
		"dollar": "USD", "dollars": "USD", "usd": "USD", "$": "USD",
		"tl": "TRY", "lira": "TRY", "try": "TRY",
	}
)

var rentalTypeKeywords = []struct {
	keywords []string
	value    string
}{
	{[]string{"long term", "long-term", "yearly", "annual", "12 month"}, "long_term"},
	{[]string{"short term", "short-term", "holiday", "weekly", "per night", "daily"}, "short_term"},
	{[]string{"buy", "purchase", "for sale", "to own"}, "sale"},
}

var vehicleTypeKeywords = []struct {
	keywords []string
	value    string
}{
	{[]string{"car", "sedan", "hatchback", "automatic", "manual"}, "car"},
	{[]string{"scooter", "moped"}, "scooter"},
	{[]string{"jeep", "suv", "4x4"}, "jeep"},
	{[]string{"motorbike", "motorcycle"}, "motorbike"},
}

var durationRe = regexp.MustCompile(`(?:for\s+)?(\d+|a|one|two|three)\s+(day|days|week|weeks|month|months|year|years)`)

// Extract returns the slots found in the utterance. Only slots the domain's
// agent asks for are relevant, but extraction itself is domain-agnostic so a
// budget mentioned before the domain settles is not lost.
func (e *SlotExtractor) Extract(input string) domain.SlotMap {
	lowered := strings.ToLower(input)
	slots := domain.SlotMap{}

	if loc, ok := extractLocation(lowered); ok {
		slots["location"] = domain.SlotValue{Value: loc, Confidence: 0.9}
	}
	if budget, ok := extractBudget(lowered); ok {
		slots["budget"] = domain.SlotValue{Value: budget, Confidence: 0.85}
	}
	if rentalType, confidence, ok := matchKeywordSlot(lowered, rentalTypeKeywords); ok {
		slots["rental_type"] = domain.SlotValue{Value: rentalType, Confidence: confidence}
	}
	if vehicleType, confidence, ok := matchKeywordSlot(lowered, vehicleTypeKeywords); ok {
		slots["vehicle_type"] = domain.SlotValue{Value: vehicleType, Confidence: confidence}
	}
	if duration, ok := extractDuration(lowered); ok {
		slots["duration"] = domain.SlotValue{Value: duration, Confidence: 0.8}
	}

	return slots
}

func extractLocation(lowered string) (string, bool) {
	for _, loc := range knownLocations {
		if strings.Contains(lowered, loc) {
			if canonical, ok := locationAliases[loc]; ok {
				return canonical, true
			}
			return loc, true
		}
	}
	return "", false
}

// extractBudget returns the canonical "<amount> <ISO>" budget form. A number
// only counts as a budget when a currency token backs it, or the utterance
// mentions the budget outright; bare numbers are usually quantities.
func extractBudget(lowered string) (string, bool) {
	for _, matches := range budgetRe.FindAllStringSubmatch(lowered, -1) {
		if matches[1] == "" {
			continue
		}
		amount := strings.ReplaceAll(matches[1], ",", "")

		if matches[2] != "" {
			currency := "GBP"
			if iso, ok := currencyWords[matches[2]]; ok {
				currency = iso
			}
			return amount + " " + currency, true
		}
		if strings.Contains(lowered, "budget") {
			return amount + " GBP", true
		}
	}
	return "", false
}

func matchKeywordSlot(lowered string, table []struct {
	keywords []string
	value    string
}) (string, float64, bool) {
	for _, entry := range table {
		for _, kw := range entry.keywords {
			if strings.Contains(lowered, kw) {
				return entry.value, 0.85, true
			}
		}
	}
	return "", 0, false
}

func extractDuration(lowered string) (string, bool) {
	matches := durationRe.FindStringSubmatch(lowered)
	if matches == nil {
		return "", false
	}

	count := matches[1]
	switch count {
	case "a", "one":
		count = "1"
	case "two":
		count = "2"
	case "three":
		count = "3"
	}
	unit := strings.TrimSuffix(matches[2], "s")
	return count + " " + unit + plural(count), true
}

func plural(count string) string {
	if count == "1" {
		return ""
	}
	return "s"
}
