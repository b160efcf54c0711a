// Package oracle is the text-completion client used for quiz generation and player questions.
package oracle

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/victornm/satsquest/internal/errors"
)

const (
	defaultModel   = "gemini-1.5-flash"
	defaultTimeout = 60 * time.Second
)

// ErrUnavailable matches every error returned by Complete.
var ErrUnavailable = errors.New(errors.CodeUnavailable)

var errNoCredentials = stderrors.New("missing API key")

type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// Gemini completes prompts with the Gemini generative language API.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
	timeout     time.Duration
}

// NewGemini creates the client. A missing API key is not an error here: the server still starts,
// and every Complete call fails with ErrUnavailable.
func NewGemini(ctx context.Context, c Config) (*Gemini, error) {
	g := &Gemini{
		model:       c.Model,
		temperature: c.Temperature,
		timeout:     c.Timeout,
	}

	if g.model == "" {
		g.model = defaultModel
	}

	if g.timeout <= 0 {
		g.timeout = defaultTimeout
	}

	if c.APIKey == "" {
		slog.WarnContext(ctx, "oracle: API key not set, generation disabled")
		return g, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.APIKey))
	if err != nil {
		return nil, fmt.Errorf("oracle: new client: %w", err)
	}
	g.client = client

	return g, nil
}

// Complete sends prompt to the model and returns the concatenated text of the first candidate.
func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	if g.client == nil {
		return "", errors.Unavailable(errNoCredentials, "oracle: not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	model := g.client.GenerativeModel(g.model)
	if g.temperature > 0 {
		model.SetTemperature(g.temperature)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", errors.Unavailable(err, "oracle: generate content failed")
	}

	text := Text(resp)
	if strings.TrimSpace(text) == "" {
		return "", errors.Unavailable(nil, "oracle: empty response")
	}

	return text, nil
}

func (g *Gemini) Close() error {
	if g.client == nil {
		return nil
	}

	return g.client.Close()
}

// Text extracts the text parts of the first candidate of resp.
func Text(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}

	return sb.String()
}
