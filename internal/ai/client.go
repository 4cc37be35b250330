package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

var ErrNotConfigured = errors.New("ai: not configured")

const defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-flash-latest:generateContent"

// fallbackReplies are served when no generation backend is configured or a
// request fails; smart replies degrade rather than error.
var fallbackReplies = []string{"👍 Sure!", "Got it!", "Thanks!"}

// Generator is the text-generation collaborator: one prompt in, one
// completion out. Implementations must be safe for concurrent use.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Client calls a Gemini-style generateContent endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	log        *log.Logger
}

func NewClient(endpoint, apiKey string, logger *log.Logger) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logger,
	}
}

// Configured reports whether a generation backend is available.
func (c *Client) Configured() bool { return c.apiKey != "" }

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     0.7,
			MaxOutputTokens: 1024,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?key="+c.apiKey, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	defer resp.Body.Close()

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if gr.Error != nil {
		return "", fmt.Errorf("generate: %s", gr.Error.Message)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response")
	}

	return strings.TrimSpace(gr.Candidates[0].Content.Parts[0].Text), nil
}

// Assistant wraps a Generator with the chat-assistant features: summaries,
// smart replies, and sentiment analysis.
type Assistant struct {
	gen Generator
	log *log.Logger
}

func NewAssistant(gen Generator, logger *log.Logger) *Assistant {
	return &Assistant{gen: gen, log: logger}
}

// SmartReplies suggests up to three short replies to the given message.
// Falls back to canned suggestions when generation is unavailable.
func (a *Assistant) SmartReplies(ctx context.Context, lastMessage string) []string {
	prompt := fmt.Sprintf("You are a chat reply assistant. Someone sent: %q\n"+
		"Give exactly 3 short reply suggestions (5 words max each).\n"+
		"Reply with ONLY a JSON array like: [\"Sure!\", \"Sounds good!\", \"Thanks!\"]", lastMessage)

	raw, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		if !errors.Is(err, ErrNotConfigured) {
			a.log.Println("smart replies:", err)
		}
		return fallbackReplies
	}

	var suggestions []string
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &suggestions); err != nil || len(suggestions) == 0 {
		return fallbackReplies
	}
	if len(suggestions) > 3 {
		suggestions = suggestions[:3]
	}
	return suggestions
}

// ChatTurn is one prior exchange in an assistant conversation.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat answers a message as the in-app assistant, carrying up to the last
// ten turns of history for context.
func (a *Assistant) Chat(ctx context.Context, message string, history []ChatTurn) (string, error) {
	var sb strings.Builder
	sb.WriteString("You are HAI, a friendly AI assistant in a chat app.\n")
	sb.WriteString("Be helpful, concise, and warm.\n\n")

	turns := make([]ChatTurn, 0, len(history))
	for _, turn := range history {
		if turn.Role == "user" || turn.Role == "assistant" {
			turns = append(turns, turn)
		}
	}
	if len(turns) > 10 {
		turns = turns[len(turns)-10:]
	}
	for _, turn := range turns {
		speaker := "HAI"
		if turn.Role == "user" {
			speaker = "User"
		}
		fmt.Fprintf(&sb, "%s: %s\n", speaker, turn.Content)
	}
	if len(turns) > 0 {
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "User: %s\nHAI:", message)

	return a.gen.Generate(ctx, sb.String())
}

// Summarize condenses a chat transcript into a few bullet points. Lines are
// "Name: content" pairs, oldest first.
func (a *Assistant) Summarize(ctx context.Context, transcript []string) (string, error) {
	if len(transcript) == 0 {
		return "No messages to summarize yet.", nil
	}

	return a.gen.Generate(ctx,
		"Summarize this chat in 3-5 bullet points starting with •.\n\n"+strings.Join(transcript, "\n"))
}

type Sentiment struct {
	Sentiment string `json:"sentiment"`
	Tone      string `json:"tone"`
	Emoji     string `json:"emoji"`
	Score     int    `json:"score"`
}

var neutralSentiment = Sentiment{Sentiment: "neutral", Tone: "neutral", Emoji: "😐", Score: 50}

// AnalyzeSentiment classifies the emotional tone of a text. An unparsable
// model response degrades to neutral.
func (a *Assistant) AnalyzeSentiment(ctx context.Context, text string) (Sentiment, error) {
	raw, err := a.gen.Generate(ctx, fmt.Sprintf("Analyze sentiment of: %q\n"+
		"Return ONLY JSON:\n"+
		`{"sentiment":"positive|negative|neutral","tone":"one word","emoji":"emoji","score":0-100}`, text))
	if err != nil {
		return Sentiment{}, err
	}

	analysis := neutralSentiment
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &analysis); err != nil {
		return neutralSentiment, nil
	}
	return analysis, nil
}

func stripCodeFence(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
