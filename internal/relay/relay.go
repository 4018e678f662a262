// Package relay forwards chat histories to the configured LLM provider with
// the deedscout research persona attached.
package relay

import (
	"context"
	"strings"

	"github.com/biddeed/deedscout/internal/fault"
	"github.com/biddeed/deedscout/internal/telemetry"
	"github.com/biddeed/deedscout/models"
	"github.com/biddeed/deedscout/provider"
)

// SystemPrompt frames every conversation. It is fixed; callers cannot
// override or remove it.
const SystemPrompt = `You are DeedScout, a foreclosure auction research assistant for Brevard County, Florida.
You help investors evaluate auction properties: lien priority, HOA foreclosure risk,
judgment amounts, maximum bid calculations and title complexity.
Answer from the provided context. When lien data is incomplete, say so and
recommend a manual title search instead of guessing.`

// Placeholder is returned when the provider call succeeds but yields no
// text. The relay never returns an empty response.
const Placeholder = "I could not produce an answer for that request. Please rephrase or narrow the question."

// Relay is a stateless pass-through between chat handlers and the provider.
type Relay struct {
	provider provider.Provider
	tele     *telemetry.Telemetry
}

func New(p provider.Provider, tele *telemetry.Telemetry) *Relay {
	return &Relay{provider: p, tele: tele}
}

// Chat prepends the system prompt, forwards the full history and returns the
// generated text verbatim. Caller-supplied system turns are dropped so the
// persona cannot be replaced from the wire.
func (r *Relay) Chat(ctx context.Context, history []models.ChatTurn) (string, models.Usage, error) {
	if r.provider == nil {
		return "", models.Usage{}, fault.Newf(fault.KindConfiguration, "relay", "chat", "no provider configured")
	}
	if len(history) == 0 {
		return "", models.Usage{}, fault.Newf(fault.KindConfiguration, "relay", "chat", "empty history")
	}

	turns := make([]models.ChatTurn, 0, len(history)+1)
	turns = append(turns, models.ChatTurn{Role: "system", Content: SystemPrompt})
	for _, t := range history {
		if t.Role == "system" {
			continue
		}
		turns = append(turns, t)
	}

	text, usage, err := r.provider.ChatCompletion(ctx, turns)
	if err != nil {
		r.record(telemetry.OutcomeFor(err), usage)
		return "", usage, err
	}
	if strings.TrimSpace(text) == "" {
		text = Placeholder
	}
	r.record(telemetry.OutcomeSuccess, usage)
	return text, usage, nil
}

func (r *Relay) record(outcome string, usage models.Usage) {
	if r.tele != nil {
		r.tele.RecordChat(outcome, usage)
	}
}
