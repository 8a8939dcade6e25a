// Package insight requests prose summaries of campaign data from an
// Ollama-compatible generate endpoint and decodes the NDJSON response stream.
package insight

// GenerateRequest is the body posted to /api/generate.
type GenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// Fragment is one decoded line of the response stream. Only Response is
// required; the rest is metadata the service sends on some or all lines.
type Fragment struct {
	Response        string `json:"response"`
	Model           string `json:"model,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason,omitempty"`
	TotalDuration   int64  `json:"total_duration,omitempty"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
}
