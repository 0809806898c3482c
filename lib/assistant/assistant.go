// Package assistant implements the chat-style movie helper. It grounds the
// model with the user's taste summary and insists on a structured JSON reply.
package assistant

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"log/slog"

	json "github.com/goccy/go-json"
	"github.com/ojingabokkumbap/moviej-recommender/lib/profile"
	"github.com/ojingabokkumbap/moviej-recommender/lib/validation"
	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = `You are a movie recommendation assistant for a Korean movie discovery service.
Answer the user's question about movies and suggest up to 5 titles.
Respond with a single JSON object of the form
{"message": "...", "suggestions": [{"title": "...", "tmdb_id": 0, "reason": "..."}]}
and nothing else. Use tmdb_id 0 when you do not know the TMDB id.`

// Suggestion is one movie the assistant proposes.
type Suggestion struct {
	Title  string `json:"title"`
	TMDBID int    `json:"tmdb_id"`
	Reason string `json:"reason"`
}

// Reply is the assistant's validated answer.
type Reply struct {
	Message     string       `json:"message"`
	Suggestions []Suggestion `json:"suggestions"`
}

// Assistant wraps the chat model with taste-profile grounding.
type Assistant struct {
	client *openai.Client
	model  string
	store  profile.Store
	logger *slog.Logger
}

func New(apiKey, model string, store profile.Store, logger *slog.Logger) *Assistant {
	return &Assistant{
		client: openai.NewClient(apiKey),
		model:  model,
		store:  store,
		logger: logger,
	}
}

// Chat sends the user's message to the model, prefixed with a summary of
// their taste profile when one exists, and returns the validated reply. A
// reply that is not valid JSON per the schema is an error, never silently
// accepted.
func (a *Assistant) Chat(ctx context.Context, userID, message string) (*Reply, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
	}

	if prof, ok := a.store.Get(userID); ok {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: tasteSummary(prof),
		})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   1000,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	raw := []byte(strings.TrimSpace(resp.Choices[0].Message.Content))
	if err := validation.ValidateAssistantReply(raw); err != nil {
		a.logger.Warn("rejecting malformed assistant reply", slog.Any("error", err))
		return nil, err
	}

	var reply Reply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("failed to decode assistant reply: %w", err)
	}
	return &reply, nil
}

// tasteSummary renders the user's strongest genre preferences and recent
// watches as grounding context.
func tasteSummary(prof *profile.UserProfile) string {
	type genreWeight struct {
		id     int
		weight float64
	}
	genres := make([]genreWeight, 0, len(prof.Preferences.Genres))
	for id, w := range prof.Preferences.Genres {
		genres = append(genres, genreWeight{id, w})
	}
	sort.Slice(genres, func(i, j int) bool { return genres[i].weight > genres[j].weight })
	if len(genres) > 5 {
		genres = genres[:5]
	}

	var b strings.Builder
	b.WriteString("The user's taste profile:\n")
	if len(genres) > 0 {
		b.WriteString("Top genre IDs by preference weight:")
		for _, g := range genres {
			fmt.Fprintf(&b, " %d (%.1f)", g.id, g.weight)
		}
		b.WriteString("\n")
	}

	history := prof.WatchHistory
	if len(history) > 5 {
		history = history[len(history)-5:]
	}
	if len(history) > 0 {
		b.WriteString("Recently watched:\n")
		for _, m := range history {
			if m.Rated {
				fmt.Fprintf(&b, "- %s (rated %.0f/5)\n", m.Title, m.UserRating)
			} else {
				fmt.Fprintf(&b, "- %s\n", m.Title)
			}
		}
	}
	return b.String()
}
