package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"

	"github.com/code-animator/backend/internal/models"
	"github.com/code-animator/backend/internal/parser"
)

const DefaultModel = "gemini-2.5-flash"

// GeminiGenerator asks Gemini for a plan using a JSON response schema.
type GeminiGenerator struct {
	apiClient apiClient
	model     string
	timeout   time.Duration
	config    *genai.GenerateContentConfig
}

type Option func(*GeminiGenerator)

func WithModel(model string) Option {
	return func(g *GeminiGenerator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithTimeout bounds each request. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(g *GeminiGenerator) {
		g.timeout = d
	}
}

func WithTemperature(temp float32) Option {
	return func(g *GeminiGenerator) {
		g.config.Temperature = &temp
	}
}

// NewGemini creates a generator backed by the Gemini API.
func NewGemini(ctx context.Context, apiKey string, options ...Option) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, goerr.New("Gemini API key is required", goerr.Tag(ErrTagInvalidRequest))
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Gemini client")
	}

	return newGemini(&realAPIClient{client: client}, options...), nil
}

func newGemini(client apiClient, options ...Option) *GeminiGenerator {
	g := &GeminiGenerator{
		apiClient: client,
		model:     DefaultModel,
		config: &genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   planSchema(),
			SystemInstruction: &genai.Content{
				Role:  "system",
				Parts: []*genai.Part{{Text: systemInstruction}},
			},
		},
	}
	for _, option := range options {
		option(g)
	}
	return g
}

// Model returns the model name requests are sent to.
func (g *GeminiGenerator) Model() string {
	return g.model
}

// Generate requests a plan for prompt with roughly numSteps steps.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, numSteps int) (*models.AnimationPlan, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, goerr.New("Please enter a topic to animate.", goerr.Tag(ErrTagInvalidRequest))
	}
	numSteps = ClampSteps(numSteps)

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: userPrompt(prompt, numSteps)}},
		},
	}

	resp, err := g.apiClient.GenerateContent(ctx, g.model, contents, g.config)
	if err != nil {
		var apiErr genai.APIError
		opts := []goerr.Option{goerr.V("model", g.model)}
		if errors.As(err, &apiErr) {
			opts = append(opts, goerr.Tag(ErrTagAPI), goerr.V("code", apiErr.Code))
		}
		return nil, goerr.Wrap(err, "Gemini request failed", opts...)
	}

	text := responseText(resp)
	if text == "" {
		return nil, goerr.New("empty response from model", goerr.Tag(ErrTagMalformed), goerr.V("model", g.model))
	}

	plan, err := decodePlan(text)
	if err != nil {
		return nil, err
	}
	fmt.Printf("[Generate] %d steps, %d elements for prompt %q\n", plan.TotalSteps(), models.CountElements(plan.Elements), truncate(prompt, 40))
	return plan, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			b.WriteString(part.Text)
		}
		if b.Len() > 0 {
			break
		}
	}
	return strings.TrimSpace(b.String())
}

var fenceRegex = regexp.MustCompile("(?s)^```(\\w*)?\\s*\\n?(.*?)\\n?\\s*```$")

// stripFences removes a markdown code fence wrapped around the whole text.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if m := fenceRegex.FindStringSubmatch(text); m != nil && m[2] != "" {
		return strings.TrimSpace(m[2])
	}
	return text
}

func decodePlan(text string) (*models.AnimationPlan, error) {
	doc := []byte(stripFences(text))

	var top map[string]json.RawMessage
	if err := json.Unmarshal(doc, &top); err != nil {
		return nil, goerr.Wrap(err, "response is not JSON", goerr.Tag(ErrTagMalformed))
	}
	for _, key := range []string{"scene", "elements", "steps"} {
		if raw, ok := top[key]; !ok || string(raw) == "null" {
			return nil, goerr.New("Invalid animation plan structure received from API.", goerr.Tag(ErrTagSchema), goerr.V("missing", key))
		}
	}

	plan, err := parser.Decode("response.json", doc)
	if err != nil {
		return nil, goerr.Wrap(err, "response is not a valid plan", goerr.Tag(ErrTagSchema))
	}
	return plan, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
