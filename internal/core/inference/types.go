package inference

// Payload is the structured output of the upstream vision/speech service,
// validated at the boundary before it enters the core pipeline.
type Payload struct {
	Dishes []DishItem `json:"dishes"`
}

// DishItem is one recognized dish.
type DishItem struct {
	Name                string           `json:"name"`
	Type                string           `json:"type"`
	QuantityDescription string           `json:"quantity_description,omitempty"`
	Ingredients         []IngredientItem `json:"ingredients"`
	QueryCandidates     []QueryCandidate `json:"query_candidates"`
}

// IngredientItem is one estimated constituent of a dish.
type IngredientItem struct {
	Name    string  `json:"name"`
	WeightG float64 `json:"weight_g"`
}

// QueryCandidate is one search term the model proposes for matching the
// dish or one of its ingredients against the reference corpus.
type QueryCandidate struct {
	Term        string `json:"term"`
	Granularity string `json:"granularity"`
	SourceTerm  string `json:"source_term,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Request is what this service sends upstream: media (base64 image or
// audio) plus an optional free-text hint.
type Request struct {
	ImageData string `json:"image_data,omitempty"`
	AudioData string `json:"audio_data,omitempty"`
	TextHint  string `json:"text_hint,omitempty"`
}
