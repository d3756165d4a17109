package budget

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/hupe1980/missionmesh/model"
)

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

func loadEncoding() *tiktoken.Tiktoken {
	encodingOnce.Do(func() {
		// cl100k_base covers GPT-3.5/4 era models and is close enough for
		// Claude-family budgeting.
		if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
			encoding = enc
		}
	})
	return encoding
}

// Estimate returns the heuristic token estimate ceil(characters/4). This is
// the budgeting contract used throughout the package.
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// CountTokens returns an accurate token count using the cl100k_base encoding
// when the tokenizer is available, falling back to Estimate otherwise.
func CountTokens(text string) int {
	if enc := loadEncoding(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return Estimate(text)
}

// messageTokens estimates one message including its tool payloads.
func messageTokens(msg model.Message, estimate func(string) int) int {
	n := estimate(msg.Text)
	for _, tc := range msg.ToolCalls {
		n += estimate(tc.Name) + estimate(string(tc.Arguments))
	}
	for _, tr := range msg.ToolResponses {
		n += estimate(tr.Result) + estimate(tr.Error)
	}
	return n
}
