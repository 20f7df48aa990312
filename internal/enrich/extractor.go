// Package enrich implements the optional label-extraction path: a photo
// of a medicine box goes to a vision-capable model, the normalized text
// comes back, and the parser turns it into a form-fill suggestion.
// Nothing in this package ever writes to the medicine store.
package enrich

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	apperrors "github.com/dosewise/dosewise/internal/errors"
)

const extractionPrompt = `You are reading a photographed medicine label. Extract what you can and answer with exactly these lines, using "unknown" when a field is not visible:
Name: <medicine name>
Dosage: <amount and unit, e.g. 10 mg>
Type: <tablet, capsule, syrup, injection, drops, cream or spray>
Frequency: <daily, weekly or monthly>
Times: <comma separated HH:MM times if printed on the label>
Notes: <usage instructions if printed>`

// Config holds the extraction provider settings.
type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	TimeoutSeconds int
}

// Extractor calls the vision model and parses its answer. A circuit
// breaker keeps a flapping provider from stalling every add-medicine
// form.
type Extractor struct {
	config  Config
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[string]
	parser  *Parser
	logger  *zap.Logger
}

// NewExtractor creates an extractor for the configured provider.
func NewExtractor(config Config, logger *zap.Logger) *Extractor {
	timeout := config.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}

	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "label-extraction",
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Extraction breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Extractor{
		config:  config,
		client:  &http.Client{Timeout: time.Duration(timeout) * time.Second},
		breaker: breaker,
		parser:  NewParser(),
		logger:  logger,
	}
}

// Extract runs the image through the vision model and returns the parsed
// suggestion. Errors here are enrichment errors: the caller shows an
// empty form and moves on.
func (e *Extractor) Extract(ctx context.Context, imageData []byte, mimeType string) (*Suggestion, error) {
	if e.config.APIKey == "" {
		return nil, apperrors.ErrEnrichUnavailable
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	text, err := e.breaker.Execute(func() (string, error) {
		return e.requestExtraction(ctx, imageData, mimeType)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, apperrors.Wrap(err, apperrors.ErrEnrichUnavailable.Code, apperrors.ErrEnrichUnavailable.Message)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrEnrichment.Code, apperrors.ErrEnrichment.Message)
	}

	suggestion := e.parser.Parse(text)
	if suggestion.Empty() {
		return nil, apperrors.Wrap(fmt.Errorf("no usable fields in model answer"), apperrors.ErrEnrichment.Code, apperrors.ErrEnrichment.Message)
	}

	e.logger.Info("Label extracted",
		zap.String("name", suggestion.Name),
		zap.Int("times", len(suggestion.Times)),
	)
	return suggestion, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (e *Extractor) requestExtraction(ctx context.Context, imageData []byte, mimeType string) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(imageData)

	reqBody := chatRequest{
		Model: e.config.Model,
		Messages: []chatMessage{
			{
				Role:    "user",
				Content: fmt.Sprintf("%s\n\nImage: data:%s;base64,%s", extractionPrompt, mimeType, encoded),
			},
		},
		MaxTokens: 1024,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.config.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("extraction request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("extraction provider returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("extraction provider error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no answer from extraction model")
	}

	return parsed.Choices[0].Message.Content, nil
}
