package identify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Compile-time interface check
var _ Identifier = (*OpenAI)(nil)

// identifyTimeout bounds one vision call. The upstream analysis is slow,
// so this is deliberately much longer than ordinary read/write timeouts.
const identifyTimeout = 2 * time.Minute

// ChatService defines the interface for making chat completion calls.
// This abstraction enables testing without calling the real OpenAI API.
type ChatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAI implements lure identification using OpenAI's vision API.
type OpenAI struct {
	chat  ChatService
	model openai.ChatModel
}

// NewOpenAI creates a new OpenAI identification service.
func NewOpenAI(apiKey, model string) *OpenAI {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}
	return &OpenAI{
		chat:  client.Chat.Completions,
		model: openai.ChatModel(model),
	}
}

const prompt = `Analyze this fishing lure image. Respond with a JSON object:
{
  "lure_type": "specific type of lure (e.g. Spinnerbait, Crankbait, Jig)",
  "confidence": confidence percentage as an integer 0-100,
  "details": {
    "description": "appearance and notable features",
    "target_species": ["fish species this lure targets"],
    "retrieve_styles": ["recommended retrieve styles"],
    "notes": "additional fishing tips"
  }
}`

// Identify sends the photo to the vision model and parses the reply.
func (o *OpenAI) Identify(ctx context.Context, imageDataURI string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, identifyTimeout)
	defer cancel()

	resp, err := o.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.F(o.model),
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.UserMessageParts(
				openai.TextPart(prompt),
				openai.ImagePart(imageDataURI),
			),
		}),
		MaxTokens:   openai.Int(1000),
		Temperature: openai.Float(0.3),
	})
	if err != nil {
		return nil, fmt.Errorf("identification failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("identification failed: no choices returned")
	}

	return parseResult(resp.Choices[0].Message.Content), nil
}

// parseResult extracts the JSON object from the model reply. The model
// occasionally wraps the JSON in prose or returns none at all; an
// unparseable reply degrades to a low-confidence unknown rather than
// failing the scan the user already paid a quota slot for.
func parseResult(content string) *Result {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		var parsed struct {
			LureType   string         `json:"lure_type"`
			Confidence json.Number    `json:"confidence"`
			Details    map[string]any `json:"details"`
		}
		if err := json.Unmarshal([]byte(content[start:end+1]), &parsed); err == nil && parsed.LureType != "" {
			conf := 50
			if n, err := parsed.Confidence.Int64(); err == nil {
				conf = clampConfidence(int(n))
			} else if f, err := parsed.Confidence.Float64(); err == nil {
				conf = clampConfidence(int(f))
			}
			return &Result{
				LureType:   parsed.LureType,
				Confidence: conf,
				Details:    parsed.Details,
			}
		}
	}

	return &Result{
		LureType:   "Unknown Lure",
		Confidence: 50,
		Details: map[string]any{
			"description": "Unable to parse detailed analysis",
			"notes":       content,
		},
	}
}

func clampConfidence(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
