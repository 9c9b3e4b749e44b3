// Command salesim runs an interactive sales-training session against a
// simulated buyer, and prints summaries of past sessions.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/sirupsen/logrus"

	"github.com/salesim-lab/salesim"
	"github.com/salesim-lab/salesim/observability"
	"github.com/salesim-lab/salesim/recordstore"
)

// defaultBuyerPrompt makes the persona behave like a discerning but
// persuadable buyer in a realistic sales simulation.
const defaultBuyerPrompt = `You are a potential buyer evaluating products and services in a realistic sales simulation.

Your profile:
- You are discerning but open to convincing offers.
- You have genuine needs and doubts about the product or service.
- Your budget is limited, but you will invest if you see value.
- You ask relevant questions about features, benefits, price and terms.
- You raise realistic objections when appropriate: price, competitors, urgency, ROI.
- You answer naturally and conversationally, like a real customer.

During the conversation: start with interest but reservations, ask about
benefits and differentiators, raise two or three objections along the way,
and stay realistic - neither a pushover nor impossible to convince.

When the seller asks for feedback, provide a structured review with
strengths, areas to improve, scores from 0 to 10 per criterion (rapport,
needs discovery, benefit presentation, objection handling, closing, overall
communication), an overall score, and two or three actionable
recommendations based on concrete moments of the conversation.`

func main() {
	var (
		offline   = flag.Bool("offline", false, "use the offline buyer persona (no API credits needed)")
		anthropic = flag.Bool("anthropic", false, "use Anthropic instead of OpenAI for the buyer persona")
		model     = flag.String("model", "", "model identifier used for pricing and generation (defaults per provider)")
		system    = flag.String("system", defaultBuyerPrompt, "system message defining the buyer's behaviour")
		resumeID  = flag.String("id", "", "resume the conversation stored under this identifier")
		storePath = flag.String("store", "data/conversations.csv", "path of the conversation record store")
		sqlite    = flag.Bool("sqlite", false, "use a SQLite record store instead of CSV")
		report    = flag.Bool("report", false, "print a summary of stored conversations and exit")
		verbose   = flag.Bool("verbose", false, "enable debug logging")
	)
	flag.Parse()

	logrusLogger := logrus.New()
	logrusLogger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		logrusLogger.SetLevel(logrus.DebugLevel)
	}
	logger := observability.NewLogrusLogger(logrusLogger)

	store, closeStore, err := openStore(*storePath, *sqlite, logger)
	if err != nil {
		logger.WithErr(err).Error("failed to open record store")
		os.Exit(1)
	}
	defer closeStore()

	ctx := context.Background()

	if *report {
		if err := printReport(ctx, store); err != nil {
			logger.WithErr(err).Error("failed to summarize conversations")
			os.Exit(1)
		}
		return
	}

	modelID := resolveModel(*model, *anthropic)
	provider, err := buildProvider(*offline, *anthropic, modelID)
	if err != nil {
		logger.Error(err)
		os.Exit(1)
	}

	opts := []salesim.ConversationOption{
		salesim.WithModel(modelID),
		salesim.WithSystemMessage(*system),
		salesim.WithLogger(logger),
	}
	if *resumeID != "" {
		opts = append(opts, salesim.WithConversationID(*resumeID))
	}
	conversation := salesim.NewConversation(provider, store, opts...)

	runSession(ctx, conversation, *offline)
}

func openStore(path string, useSQLite bool, logger observability.Logger) (recordstore.Store, func(), error) {
	if useSQLite {
		store, err := recordstore.NewSQLiteStore(path, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	}
	return recordstore.NewCSVStore(path, logger), func() {}, nil
}

// resolveModel picks the single model identifier used for both generation
// and pricing, so the cost ledger is never priced under a different model
// than the one answering.
func resolveModel(flagValue string, useAnthropic bool) string {
	if flagValue != "" {
		return flagValue
	}
	if useAnthropic {
		return string(salesim.DefaultAnthropicModel)
	}
	return salesim.DefaultModel
}

func buildProvider(offline, useAnthropic bool, model string) (salesim.PersonaProvider, error) {
	if offline {
		return salesim.NewOfflinePersonaProvider(), nil
	}
	if useAnthropic {
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set; use -offline to train without credits")
		}
		return salesim.NewAnthropicPersonaProvider(salesim.AnthropicPersonaConfig{
			Client: salesim.NewAnthropicClient(apiKey),
			Model:  anthropicsdk.Model(model),
		}), nil
	}
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set; use -offline to train without credits")
	}
	return salesim.NewOpenAIPersonaProvider(salesim.OpenAIPersonaConfig{
		Client: salesim.NewOpenAIClient(apiKey),
		Model:  model,
	}), nil
}

func runSession(ctx context.Context, conversation *salesim.Conversation, offline bool) {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("SALES SIMULATOR - Training session", conversation.ID())
	if offline {
		fmt.Println("Mode: offline (free, simulated replies)")
	} else {
		fmt.Println("Mode: live (costs real API credits)")
	}
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println()
	fmt.Println("You are the SELLER. The buyer is waiting for your pitch.")
	fmt.Println("Type FEEDBACK to end the session and receive a review.")
	fmt.Println(strings.Repeat("-", 60))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nYou (seller): ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.EqualFold(input, "FEEDBACK") {
			result, err := conversation.Send(ctx,
				"Please give me detailed feedback on my sales process now.")
			if err != nil {
				fmt.Fprintf(os.Stderr, "feedback request failed: %v\n", err)
				break
			}
			fmt.Printf("\nBUYER'S FEEDBACK:\n\n%s\n", result.Reply)
			break
		}

		result, err := conversation.Send(ctx, input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "send failed: %v (your message is kept; try again or type FEEDBACK)\n", err)
			continue
		}
		fmt.Printf("\nBuyer: %s\n", result.Reply)
	}

	stats := conversation.UsageStats()
	fmt.Println()
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("Session %s - model %s - %d tokens - $%.6f\n",
		conversation.ID(), stats.Model, stats.TotalTokens, stats.TotalCost)
}

func printReport(ctx context.Context, store recordstore.Store) error {
	summaries, err := salesim.SummarizeConversations(ctx, store)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No stored conversations.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CONVERSATION\tSTARTED\tEXCHANGES\tTOKENS\tCOST (USD)\tFIRST MESSAGE")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.6f\t%s\n",
			s.ConversationID, s.StartedAt, s.Exchanges, s.TotalTokens, s.TotalCost, s.FirstMessage)
	}
	return w.Flush()
}
