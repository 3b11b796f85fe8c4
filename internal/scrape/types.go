package scrape

// Mapping represents one extraction rule.
type Mapping struct {
	Selector string `json:"selector"`        // relative to doc or record; "" means the root itself
	Extract  string `json:"extract"`         // "text", "attr", "html"
	Attr     string `json:"attr,omitempty"`  // used when Extract == "attr"
	JSONPath string `json:"json_path"`       // key name in output object
	Match    string `json:"match,omitempty"` // optional regex filter (applies to extracted value)
	All      bool   `json:"all,omitempty"`   // optional: collect all matches into []string
}

// MappingFile describes a selector mapping file.
type MappingFile struct {
	RecordSelector string    `json:"record_selector,omitempty"` // if set => record mode
	Mappings       []Mapping `json:"mappings"`
}

// Film is one entry of a scraped list, in list order.
type Film struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug,omitempty"`
	URL         string  `json:"url,omitempty"`
	Position    int     `json:"position"`
	OwnerRating float64 `json:"owner_rating,omitempty"`
}
