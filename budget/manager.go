package budget

import (
	"fmt"
	"strings"

	"github.com/hupe1980/missionmesh/logging"
	"github.com/hupe1980/missionmesh/model"
)

const (
	// keepRecent is the number of trailing messages preserved verbatim when
	// stage-one compression replaces older turns with a summary.
	keepRecent = 8
	// compressAbove is the message count above which stage-one compression
	// applies.
	compressAbove = 10
	// summaryTurns caps the number of user turns quoted in the synthetic
	// summary message.
	summaryTurns = 5
	// summaryChars caps the quoted prefix of each summarized user turn.
	summaryChars = 100
	// validateCeiling is the fraction of the total limit above which
	// Validate rejects a request outright.
	validateCeiling = 0.95
)

// Profile describes the budget-relevant characteristics of a model family:
// the total input limit and how many tokens to reserve for the completion.
// Reasoning-heavy families get a larger reserve.
type Profile struct {
	Name              string
	TotalLimit        int
	CompletionReserve int
}

// ProfileFor resolves a budget profile from a model name. Unknown models get
// the default profile.
func ProfileFor(modelName string) Profile {
	name := strings.ToLower(modelName)
	switch {
	case strings.HasPrefix(name, "o1") || strings.HasPrefix(name, "o3"):
		return Profile{Name: "reasoning", TotalLimit: 200_000, CompletionReserve: 25_000}
	case strings.Contains(name, "claude"):
		return Profile{Name: "claude", TotalLimit: 200_000, CompletionReserve: 8_192}
	case strings.Contains(name, "gpt-4"):
		return Profile{Name: "gpt-4", TotalLimit: 128_000, CompletionReserve: 4_096}
	default:
		return Profile{Name: "default", TotalLimit: 128_000, CompletionReserve: 4_096}
	}
}

// Options configures a Manager.
type Options struct {
	// Profile sets the model family limits. Defaults to ProfileFor("").
	Profile Profile
	// Overhead is the fixed token overhead subtracted from every budget
	// (message framing, role markers, safety margin).
	Overhead int
	// UseTokenizer switches estimation from the chars/4 contract to the
	// tiktoken-backed counter. Budget arithmetic is unchanged.
	UseTokenizer bool
	// Logger records compression decisions. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Validation is the result of the caller-facing budget guard.
type Validation struct {
	Valid  bool
	Reason string
}

// Manager computes the token budget available for conversation history and
// compresses message lists that exceed it. A Manager is immutable after
// construction and safe for concurrent use.
type Manager struct {
	profile   Profile
	overhead  int
	estimator func(string) int
	logger    logging.Logger
}

// NewManager constructs a Manager with sensible defaults.
func NewManager(optFns ...func(o *Options)) *Manager {
	opts := Options{
		Profile:  ProfileFor(""),
		Overhead: 500,
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	estimator := Estimate
	if opts.UseTokenizer {
		estimator = CountTokens
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Manager{
		profile:   opts.Profile,
		overhead:  opts.Overhead,
		estimator: estimator,
		logger:    opts.Logger,
	}
}

// Estimate returns the manager's token estimate for a text.
func (m *Manager) Estimate(text string) int { return m.estimator(text) }

// EstimateMessages returns the summed estimate for a message list.
func (m *Manager) EstimateMessages(messages []model.Message) int {
	total := 0
	for _, msg := range messages {
		total += messageTokens(msg, m.estimator)
	}
	return total
}

// Available computes the budget remaining for conversation history after the
// system prompt, tool schemas, completion reserve and fixed overhead are
// subtracted from the model's total limit. Never negative.
func (m *Manager) Available(systemTokens, toolTokens int) int {
	available := m.profile.TotalLimit - systemTokens - toolTokens - m.profile.CompletionReserve - m.overhead
	if available < 0 {
		return 0
	}
	return available
}

// Fit returns a message list that fits the available budget. When the input
// already fits it is returned unchanged, which makes Fit idempotent on
// compressed lists. System messages are never evicted in stage two.
func (m *Manager) Fit(messages []model.Message, systemTokens, toolTokens int) []model.Message {
	available := m.Available(systemTokens, toolTokens)
	if m.EstimateMessages(messages) <= available {
		return messages
	}

	out := messages
	if len(out) > compressAbove {
		out = m.summarizeOldest(out)
		m.logger.Debug("budget compression summarized history", "kept", keepRecent, "total", len(messages))
	}

	// Stage two: evict oldest non-system messages until under budget or only
	// one message remains.
	for m.EstimateMessages(out) > available && len(out) > 1 {
		evicted := false
		for i, msg := range out {
			if msg.Role == "system" {
				continue
			}
			out = append(append([]model.Message{}, out[:i]...), out[i+1:]...)
			evicted = true
			break
		}
		if !evicted {
			break // only system messages left
		}
	}

	m.logger.Debug("budget compression finished", "messages", len(out), "tokens", m.EstimateMessages(out), "available", available)

	return out
}

// summarizeOldest replaces everything but the last keepRecent messages with
// one synthetic system message quoting the first summaryChars characters of
// up to summaryTurns dropped user turns.
func (m *Manager) summarizeOldest(messages []model.Message) []model.Message {
	dropped := messages[:len(messages)-keepRecent]
	recent := messages[len(messages)-keepRecent:]

	var quotes []string
	for _, msg := range dropped {
		if msg.Role != "user" || msg.Text == "" {
			continue
		}
		text := msg.Text
		if len(text) > summaryChars {
			text = text[:summaryChars]
		}
		quotes = append(quotes, text)
		if len(quotes) == summaryTurns {
			break
		}
	}

	summary := model.Message{
		Role: "system",
		Text: fmt.Sprintf("Summary of %d earlier messages. The user asked about: %s", len(dropped), strings.Join(quotes, "; ")),
	}

	out := make([]model.Message, 0, len(recent)+1)
	out = append(out, summary)
	out = append(out, recent...)
	return out
}

// Validate is the caller-facing guard applied after compression: it rejects
// when system prompt, messages, tools and completion reserve together exceed
// 95% of the total limit. It performs no compression of its own.
func (m *Manager) Validate(messages []model.Message, systemTokens, toolTokens int) Validation {
	total := systemTokens + m.EstimateMessages(messages) + toolTokens + m.profile.CompletionReserve
	ceiling := int(float64(m.profile.TotalLimit) * validateCeiling)
	if total > ceiling {
		return Validation{
			Valid:  false,
			Reason: fmt.Sprintf("request of %d tokens exceeds %d (95%% of %d token limit)", total, ceiling, m.profile.TotalLimit),
		}
	}
	return Validation{Valid: true}
}
