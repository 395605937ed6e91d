package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// CompletionRequest describes one structured-output call to the model
type CompletionRequest struct {
	Model             string
	SystemInstruction string
	Prompt            string
	SchemaName        string
	Schema            any
}

// CompletionClient defines the model operations the generator needs
type CompletionClient interface {
	CreateStructuredCompletion(ctx context.Context, req CompletionRequest) (string, error)
}

// Compile-time interface compliance check.
var _ CompletionClient = (*OpenAIClient)(nil)

// OpenAIClient wraps the official OpenAI Go SDK
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates a client bound to one API key.
// baseURL may point at any OpenAI-compatible endpoint; empty uses api.openai.com.
func NewOpenAIClient(apiKey, baseURL string, maxRetries int) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(max(maxRetries, 0)),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIClient{client: &client}
}

// CreateStructuredCompletion asks for a JSON answer conforming to req.Schema
func (c *OpenAIClient) CreateStructuredCompletion(ctx context.Context, req CompletionRequest) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if req.SystemInstruction != "" {
		messages = append(messages, openai.SystemMessage(req.SystemInstruction))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages,
	}
	if req.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   req.SchemaName,
					Schema: req.Schema,
					Strict: openai.Bool(true),
				},
			},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// classifyAPIError maps SDK errors to the package's remote failure sentinels
func classifyAPIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests:
			if strings.Contains(msg, "quota") || strings.Contains(msg, "billing") {
				return fmt.Errorf("%s: %w", msg, ErrQuotaExceeded)
			}
			return fmt.Errorf("%s: %w", msg, ErrRateLimit)
		case http.StatusPaymentRequired:
			return fmt.Errorf("%s: %w", msg, ErrQuotaExceeded)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s: %w", msg, ErrAuthFailed)
		case http.StatusRequestTimeout, http.StatusGatewayTimeout,
			http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
			return fmt.Errorf("%s: %w", msg, ErrTimeout)
		default:
			if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
				return fmt.Errorf("%s: %w", msg, ErrBadRequest)
			}
		}
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", ErrTimeout)
	}
	return err
}
