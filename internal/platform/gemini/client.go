package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/mornoningo-api/internal/config"
	"github.com/phrazzld/mornoningo-api/internal/generation"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const (
	defaultCallTimeout = 60 * time.Second
	temperature        = 0.4
	jsonMIMEType       = "application/json"
)

// contentModel is the part of genai.Models the client uses.
type contentModel interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Client implements generation.Generator using the Gemini API.
type Client struct {
	models  contentModel
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

var _ generation.Generator = (*Client)(nil)

// NewClient creates a Gemini client from the LLM configuration.
func NewClient(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return newClient(client.Models, cfg, logger), nil
}

func newClient(models contentModel, cfg config.LLMConfig, logger *slog.Logger) *Client {
	logger = logger.With(slog.String("component", "gemini"), slog.String("model", cfg.ModelName))

	timeout := time.Duration(cfg.CallTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}

	rpm := max(cfg.RequestsPerMinute, 1)
	// 90% of the quota, with a burst of a tenth of a minute's budget
	limiter := rate.NewLimiter(rate.Limit(float64(rpm)*0.9/60.0), max(rpm/10, 1))

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gemini",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		// Only provider health counts against the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || !generation.IsTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
	})

	return &Client{
		models:  models,
		model:   cfg.ModelName,
		timeout: timeout,
		limiter: limiter,
		breaker: breaker,
		logger:  logger,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Complete implements generation.Generator.
func (c *Client) Complete(ctx context.Context, req generation.Request) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", fmt.Errorf("%w: empty prompt", generation.ErrInvalidResponse)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", mapError(ctxErr)
		}
		// The wait would outlast the caller's deadline.
		return "", fmt.Errorf("%w: %v", generation.ErrRateLimited, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	gcfg := &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](temperature)}
	if req.JSON {
		gcfg.ResponseMIMEType = jsonMIMEType
	}

	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.models.GenerateContent(callCtx, c.model, genai.Text(req.Prompt), gcfg)
		if err != nil {
			return nil, mapError(err)
		}
		return responseText(resp)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %v", generation.ErrUnavailable, err)
		}
		c.logger.WarnContext(ctx, "gemini call failed",
			"error", err,
			"prompt_length", len(req.Prompt),
			"duration_ms", time.Since(start).Milliseconds())
		return "", err
	}

	text := result.(string)
	c.logger.DebugContext(ctx, "gemini call succeeded",
		"prompt_length", len(req.Prompt),
		"response_length", len(text),
		"duration_ms", time.Since(start).Milliseconds())
	return text, nil
}

// responseText extracts the answer text, classifying blocked and empty
// responses.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked (%s)", generation.ErrContentBlocked, fb.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", generation.ErrInvalidResponse)
	}
	switch resp.Candidates[0].FinishReason {
	case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent, genai.FinishReasonBlocklist:
		return "", fmt.Errorf("%w: finish reason %s", generation.ErrContentBlocked, resp.Candidates[0].FinishReason)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}
	return text, nil
}

// mapError translates SDK and transport errors into generation sentinels.
func mapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", generation.ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", generation.ErrRateLimited, apiErr.Message)
		case apiErr.Code == http.StatusRequestTimeout || apiErr.Code == http.StatusGatewayTimeout:
			return fmt.Errorf("%w: %s", generation.ErrTimeout, apiErr.Message)
		case apiErr.Code >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %d %s", generation.ErrUnavailable, apiErr.Code, apiErr.Message)
		default:
			return fmt.Errorf("gemini rejected request: %d %s", apiErr.Code, apiErr.Message)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", generation.ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", generation.ErrUnavailable, err)
	}
	return fmt.Errorf("%w: %v", generation.ErrUnavailable, err)
}

func validateConfig(cfg config.LLMConfig) error {
	if cfg.GeminiAPIKey == "" {
		return fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}
	return nil
}
