package domain

// Listing is one ranked item returned by the listing repository. The catalog
// schema is owned elsewhere; this is the narrow projection the concierge
// consumes and renders into show_listings actions.
type Listing struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Location string  `json:"location"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Variant  string  `json:"variant,omitempty"`
	ImageURL string  `json:"imageUrl,omitempty"`
	Score    float64 `json:"score"`
}

// SearchFilter is a query against the listing repository
type SearchFilter struct {
	Domain   BusinessDomain    `json:"domain"`
	Location string            `json:"location,omitempty"`
	MaxPrice float64           `json:"maxPrice,omitempty"`
	Currency string            `json:"currency,omitempty"`
	Variant  string            `json:"variant,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
	Limit    int               `json:"limit,omitempty"`
}

// SearchResult is a ranked listing page, possibly degraded
type SearchResult struct {
	Items []Listing `json:"items"`
	// Degraded marks a synthetic result produced while the search circuit is
	// open or a call timed out; no network attempt backs it
	Degraded bool `json:"degraded"`
}
