package identify

import (
	"context"
	"errors"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// fakeChat returns a canned completion and captures the request params.
type fakeChat struct {
	content string
	err     error
	params  openai.ChatCompletionNewParams
	empty   bool
}

func (f *fakeChat) New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	if f.empty {
		return &openai.ChatCompletion{}, nil
	}
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
	}, nil
}

func TestOpenAI_IdentifyParsesStructuredReply(t *testing.T) {
	chat := &fakeChat{content: `{
		"lure_type": "Spinnerbait",
		"confidence": 87,
		"details": {
			"description": "Willow blade, white skirt",
			"target_species": ["Bass", "Pike"]
		}
	}`}
	o := &OpenAI{chat: chat, model: openai.ChatModelGPT4oMini}

	result, err := o.Identify(context.Background(), "data:image/jpeg;base64,xxxx")
	if err != nil {
		t.Fatal(err)
	}
	if result.LureType != "Spinnerbait" {
		t.Errorf("LureType = %q", result.LureType)
	}
	if result.Confidence != 87 {
		t.Errorf("Confidence = %d", result.Confidence)
	}
	if result.Details["description"] != "Willow blade, white skirt" {
		t.Errorf("Details = %v", result.Details)
	}
}

func TestOpenAI_IdentifyExtractsJSONFromProse(t *testing.T) {
	chat := &fakeChat{content: "Sure! Here is the analysis:\n" +
		`{"lure_type": "Jig", "confidence": 72, "details": {}}` +
		"\nLet me know if you need more."}
	o := &OpenAI{chat: chat, model: openai.ChatModelGPT4oMini}

	result, err := o.Identify(context.Background(), "data:image/jpeg;base64,xxxx")
	if err != nil {
		t.Fatal(err)
	}
	if result.LureType != "Jig" || result.Confidence != 72 {
		t.Errorf("result = %+v", result)
	}
}

func TestOpenAI_IdentifyFallsBackOnGarbage(t *testing.T) {
	chat := &fakeChat{content: "I cannot tell what this is."}
	o := &OpenAI{chat: chat, model: openai.ChatModelGPT4oMini}

	result, err := o.Identify(context.Background(), "data:image/jpeg;base64,xxxx")
	if err != nil {
		t.Fatal(err)
	}
	if result.LureType != "Unknown Lure" {
		t.Errorf("LureType = %q, want Unknown Lure", result.LureType)
	}
	if result.Confidence != 50 {
		t.Errorf("Confidence = %d, want 50", result.Confidence)
	}
	if result.Details["notes"] != "I cannot tell what this is." {
		t.Errorf("raw reply not preserved: %v", result.Details)
	}
}

func TestOpenAI_IdentifyErrorPropagates(t *testing.T) {
	chat := &fakeChat{err: errors.New("rate limited")}
	o := &OpenAI{chat: chat, model: openai.ChatModelGPT4oMini}

	if _, err := o.Identify(context.Background(), "data:image/jpeg;base64,xxxx"); err == nil {
		t.Error("Identify with failing backend succeeded")
	}
}

func TestOpenAI_IdentifyNoChoices(t *testing.T) {
	chat := &fakeChat{empty: true}
	o := &OpenAI{chat: chat, model: openai.ChatModelGPT4oMini}

	if _, err := o.Identify(context.Background(), "data:image/jpeg;base64,xxxx"); err == nil {
		t.Error("Identify with empty completion succeeded")
	}
}

func TestParseResult_ConfidenceClamping(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{`{"lure_type": "Spoon", "confidence": 150}`, 100},
		{`{"lure_type": "Spoon", "confidence": -5}`, 0},
		{`{"lure_type": "Spoon", "confidence": 92.6}`, 92},
		{`{"lure_type": "Spoon", "confidence": "n/a"}`, 50},
	}
	for _, tt := range tests {
		got := parseResult(tt.raw)
		if got.Confidence != tt.want {
			t.Errorf("parseResult(%s).Confidence = %d, want %d", tt.raw, got.Confidence, tt.want)
		}
	}
}

func TestResult_NewLure(t *testing.T) {
	r := Result{LureType: "Crankbait", Confidence: 64, Details: map[string]any{"notes": "x"}}
	nl := r.NewLure("file:///photo.jpg")
	if nl.ImageURI != "file:///photo.jpg" || nl.LureType != "Crankbait" || nl.Confidence != 64 {
		t.Errorf("NewLure = %+v", nl)
	}
}
