package insight

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/papercomputeco/adpulse/pkg/campaign"
)

const (
	promptPreamble = "Analyze the following marketing data and provide insights:\n\n"
	promptTrailer  = "\n\nKey insights:"
)

// BuildPrompt embeds the records as a compact JSON array between the fixed
// instruction and answer cue.
func BuildPrompt(records []*campaign.Record) (string, error) {
	if records == nil {
		records = []*campaign.Record{}
	}

	var buf bytes.Buffer
	buf.WriteString(promptPreamble)

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return "", fmt.Errorf("encoding records for prompt: %w", err)
	}
	buf.Truncate(buf.Len() - 1) // Encode appends a newline

	buf.WriteString(promptTrailer)
	return buf.String(), nil
}
