package compare

// Match pairs a candidate text with its blended similarity score.
type Match struct {
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
	Position int     `json:"position"`
}

// Result holds the outcome of a single comparison query.
type Result struct {
	Closest string  `json:"closest"`
	Score   float64 `json:"score"`
	Similar []Match `json:"similar"`
}

// TokenVector couples a token with its embedding vector. Tokens the model
// cannot embed carry a nil Vector and are skipped by semantic scoring.
type TokenVector struct {
	Token  string
	Vector []float32
}
