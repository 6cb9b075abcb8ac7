// Package llm turns raw OCR text into structured document records using an
// OpenAI-compatible chat completion endpoint. Provider failures are
// classified as transient or permanent and only transient ones are
// retried, with exponential backoff and jitter.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/docflow/docflow-backend/internal/document/domain"
	"github.com/docflow/docflow-backend/pkg/config"
)

const (
	extractionTemperature = 0.1
	extractionTopP        = 0.9
)

// Extractor runs document extraction against a chat completion model.
// Safe for concurrent use.
type Extractor struct {
	client    openai.Client
	model     string
	attempts  uint
	baseDelay time.Duration
}

func NewExtractor(cfg config.ModelConfig) *Extractor {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// Retries are handled here, where transient and permanent
		// failures can be told apart; the SDK must not retry on its own.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}

	attempts := uint(cfg.MaxAttempts)
	if attempts == 0 {
		attempts = 5
	}

	return &Extractor{
		client:    openai.NewClient(opts...),
		model:     cfg.Name,
		attempts:  attempts,
		baseDelay: time.Second,
	}
}

// ExtractCIN extracts a structured identity card record from OCR text.
func (e *Extractor) ExtractCIN(ctx context.Context, rawText string) (*domain.CINRecord, error) {
	output, err := e.complete(ctx, cinSystemPrompt, cinUserPrompt(rawText), "cin_record", cinSchema)
	if err != nil {
		return nil, err
	}

	var rec domain.CINRecord
	if err := json.Unmarshal([]byte(CleanJSON(output)), &rec); err != nil {
		return nil, &domain.ParsingError{Err: fmt.Errorf("decoding cin record: %w", err)}
	}
	return &rec, nil
}

// ExtractPermis extracts a structured driving-license record from OCR text.
func (e *Extractor) ExtractPermis(ctx context.Context, rawText string) (*domain.PermisRecord, error) {
	output, err := e.complete(ctx, permisSystemPrompt, permisUserPrompt(rawText), "permis_record", permisSchema)
	if err != nil {
		return nil, err
	}

	var rec domain.PermisRecord
	if err := json.Unmarshal([]byte(CleanJSON(output)), &rec); err != nil {
		return nil, &domain.ParsingError{Err: fmt.Errorf("decoding permis record: %w", err)}
	}
	return &rec, nil
}

// ExtractGris extracts a raw vehicle registration document from OCR text.
// The model is prompted for plain JSON rather than constrained output, so
// the reply is cleaned, decoded and checked against the registration
// schema before it is handed to normalization.
func (e *Extractor) ExtractGris(ctx context.Context, rawText string) (map[string]any, error) {
	output, err := e.complete(ctx, grisSystemPrompt, grisUserPrompt(rawText), "", nil)
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(CleanJSON(output)), &doc); err != nil {
		return nil, &domain.ParsingError{Err: fmt.Errorf("decoding gris document: %w", err)}
	}

	if err := grisSchema.Validate(doc); err != nil {
		return nil, &domain.ParsingError{Err: fmt.Errorf("gris document failed schema check: %w", err)}
	}
	return doc, nil
}

// complete performs one chat completion with retry on transient provider
// failures. A non-empty schemaName constrains the reply to the given JSON
// schema via structured output.
func (e *Extractor) complete(ctx context.Context, system, user, schemaName string, schema map[string]any) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(e.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(extractionTemperature),
		TopP:        openai.Float(extractionTopP),
	}
	if schemaName != "" {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schemaName,
					Schema: schema,
					Strict: openai.Bool(true),
				},
			},
		}
	}

	output, err := retry.DoWithData(
		func() (string, error) {
			resp, err := e.client.Chat.Completions.New(ctx, params)
			if err != nil {
				return "", classify(err)
			}
			if len(resp.Choices) == 0 {
				return "", &domain.ProviderError{Err: errors.New("completion returned no choices"), Transient: true}
			}
			return resp.Choices[0].Message.Content, nil
		},
		retry.Context(ctx),
		retry.Attempts(e.attempts),
		retry.RetryIf(domain.IsTransient),
		retry.DelayType(e.backoff),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", err
	}
	return output, nil
}

// backoff doubles the delay on each attempt and adds up to one base delay
// of jitter so concurrent requests do not retry in lockstep.
func (e *Extractor) backoff(n uint, _ error, _ *retry.Config) time.Duration {
	return (1<<n)*e.baseDelay + time.Duration(rand.Float64()*float64(e.baseDelay))
}

// classify wraps a provider failure with its retry class. Rate limiting
// and server-side errors are transient; so are transport failures, unless
// the caller gave up first. Everything else is permanent.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &domain.ProviderError{Err: err, Transient: false}
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		transient := apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
		return &domain.ProviderError{Err: err, Transient: transient}
	}

	return &domain.ProviderError{Err: err, Transient: true}
}
