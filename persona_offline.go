package salesim

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// OfflinePersonaProvider simulates the buyer persona without any network
// access, so sellers can train for free. Replies are canned objections keyed
// on the seller's wording and on how deep the conversation is; the turn
// number is derived from the log itself, so the provider keeps no
// per-conversation state. It never fails and reports no token usage.
type OfflinePersonaProvider struct {
	delay time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// OfflineOption defines the function signature for option pattern.
type OfflineOption func(*OfflinePersonaProvider)

// WithResponseDelay makes every reply block for the given duration,
// approximating the latency of a real generation service.
func WithResponseDelay(delay time.Duration) OfflineOption {
	return func(p *OfflinePersonaProvider) {
		p.delay = delay
	}
}

// WithRandomSeed fixes the random source so reply selection is
// reproducible.
func WithRandomSeed(seed int64) OfflineOption {
	return func(p *OfflinePersonaProvider) {
		p.rng = rand.New(rand.NewSource(seed))
	}
}

// NewOfflinePersonaProvider creates the offline buyer persona with optional
// configurations.
func NewOfflinePersonaProvider(opts ...OfflineOption) *OfflinePersonaProvider {
	provider := &OfflinePersonaProvider{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	for _, opt := range opts {
		opt(provider)
	}

	return provider
}

var offlineOpeners = []string{
	"Hello! Yes, I'm looking for something in this area, but I need to understand whether it really fits my needs. What exactly are you offering?",
	"Hi! I'm interested, but I've already evaluated other options on the market. What makes your solution different?",
	"Good morning! I am researching, but my budget is a bit tight. Tell me more about what you offer?",
}

var offlinePriceObjections = []string{
	"Hmm, that figure is a bit above what I had in mind. Is there any way to make it more accessible, maybe installments or a discount?",
	"I see... but I've seen competitors offering something similar for less. How do you justify this price?",
	"That's a considerable investment. How can I be sure I'll see a return on it?",
}

var offlineBenefitObjections = []string{
	"Interesting... but how does that solve my specific problem? Do you have success stories?",
	"Okay, those features sound nice. But what's the practical day-to-day benefit?",
	"And compared with your main competitor, what do you actually do better?",
}

var offlineUrgencyObjections = []string{
	"I'm enjoying the conversation, but I'm not sure this is the right moment to decide. Can I think it over for a few days?",
	"It sounds good, but I need to talk to my partner before making this call.",
}

var offlineComparisonObjections = []string{
	"You've made several good points, but how does your product compare to the competition? They have a similar pitch...",
	"I understand the advantages. To be honest, I'm also evaluating two other companies. Why should I pick you?",
}

var offlineWarmingReplies = []string{
	"You've presented the points well. I'm seriously considering it, but one doubt remains: what if it doesn't work as expected?",
	"I like the approach. But I need to see this working in practice. Is there a trial or a demo?",
	"Alright, you're winning me over. What would the next steps be if I decide to go ahead?",
}

var offlineDefaultReplies = []string{
	"Right, I follow. And what about delivery time, is it quick?",
	"Interesting. Tell me more about how it works in practice.",
	"Okay, but what about support? What happens if I run into problems?",
	"I see. Is there a guarantee or a trial period?",
	"Can you give concrete examples of results your customers achieved?",
}

// offlineFeedbackReport mirrors the structured review a real buyer persona
// gives when the seller asks for feedback at the end of a session.
const offlineFeedbackReport = `**SALES PROCESS FEEDBACK**

**STRENGTHS:**
- Showed genuine interest in understanding my needs
- Clear and objective communication throughout the conversation
- Kept a professional and friendly tone
- Presented information in a structured way

**AREAS TO IMPROVE:**
- Could have asked more discovery questions early on to understand my context
- Objection handling could go deeper, with concrete examples
- Closing could be more direct, with a clear call to action

**SCORES (0 to 10):**
- Rapport and opening: 7/10
- Needs discovery: 6/10
- Benefit presentation: 7/10
- Objection handling: 6/10
- Closing and call to action: 5/10
- Overall communication: 7/10

**OVERALL: 6.3/10**

**SPECIFIC RECOMMENDATIONS:**
1. Open with discovery questions like "What's your biggest challenge today?" before pitching solutions
2. Handle objections with "Feel, Felt, Found": acknowledge the concern, relate it to other customers, and share what they discovered
3. Always end with a concrete action: "Can I send a proposal by tomorrow?" or "Shall we book a demo on Tuesday?"
4. Bring more success stories and hard numbers (results, ROI)

Practice makes perfect. Keep training and applying these techniques.`

func containsAny(text string, words ...string) bool {
	for _, word := range words {
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}

// pick selects a canned reply under the provider's random source.
func (p *OfflinePersonaProvider) pick(replies []string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return replies[p.rng.Intn(len(replies))]
}

// turnNumber counts the seller's turns in the log, including the one being
// answered.
func turnNumber(messages []Message) int {
	turns := 0
	for _, msg := range messages {
		if msg.Role == UserRole {
			turns++
		}
	}
	return turns
}

// lastUserUtterance returns the most recent seller turn.
func lastUserUtterance(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == UserRole {
			return messages[i].Content
		}
	}
	return ""
}

// Respond implements the PersonaProvider interface without any network
// calls. Usage is always nil, which the accountant treats as zero-cost.
func (p *OfflinePersonaProvider) Respond(_ context.Context, messages []Message) (PersonaReply, error) {
	if p.delay > 0 {
		time.Sleep(p.delay)
	}

	utterance := strings.ToLower(lastUserUtterance(messages))
	turn := turnNumber(messages)

	var text string
	switch {
	case containsAny(utterance, "feedback", "assessment", "evaluation", "review"):
		text = offlineFeedbackReport
	case turn <= 1:
		text = p.pick(offlineOpeners)
	case containsAny(utterance, "price", "cost", "pricing", "how much", "investment", "$"):
		text = p.pick(offlinePriceObjections)
	case containsAny(utterance, "benefit", "advantage", "feature", "capability", "differentiator"):
		text = p.pick(offlineBenefitObjections)
	case turn == 3:
		text = p.pick(offlineUrgencyObjections)
	case turn == 4:
		text = p.pick(offlineComparisonObjections)
	case containsAny(utterance, "warranty", "guarantee", "support", "training", "implementation", "timeline"):
		text = "That matters to me. How long does implementation take? And do you provide support afterwards?"
	case turn >= 5:
		text = p.pick(offlineWarmingReplies)
	default:
		text = p.pick(offlineDefaultReplies)
	}

	return PersonaReply{Text: text, Usage: nil}, nil
}
