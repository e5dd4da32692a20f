package recognizer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"

	"github.com/PromptSentry/PromptSentry/pkg/domain/recognizer"
	"github.com/PromptSentry/PromptSentry/pkg/infra/httpx"
)

const (
	analyzePath           = "/analyze"
	defaultRequestTimeout = 10 * time.Second
	breakerOpenTimeout    = 30 * time.Second
	breakerMaxFailures    = 5
)

type httpClient struct {
	client  *fasthttp.Client
	breaker httpx.CircuitBreaker
	baseURL string
	logger  *logrus.Logger
}

type analyzeRequest struct {
	Text           string   `json:"text"`
	Language       string   `json:"language"`
	Entities       []string `json:"entities,omitempty"`
	ScoreThreshold float64  `json:"score_threshold"`
}

// NewHTTPRecognizer builds a recognizer.Recognizer talking to a
// Presidio-style analyzer service. Calls run behind a circuit breaker so a
// dead recognizer degrades the PII stage instead of stalling every request.
func NewHTTPRecognizer(client *fasthttp.Client, baseURL string, logger *logrus.Logger) recognizer.Recognizer {
	return &httpClient{
		client:  client,
		breaker: httpx.NewCircuitBreaker("entity_recognizer", breakerOpenTimeout, breakerMaxFailures),
		baseURL: baseURL,
		logger:  logger,
	}
}

func (c *httpClient) Recognize(
	ctx context.Context,
	text, language string,
	entities []string,
	scoreThreshold float64,
) ([]recognizer.Entity, error) {
	payload, err := json.Marshal(analyzeRequest{
		Text:           text,
		Language:       language,
		Entities:       entities,
		ScoreThreshold: scoreThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analyze request: %w", err)
	}

	var results []recognizer.Entity
	err = c.breaker.Execute(func() error {
		res, callErr := c.doAnalyze(ctx, payload)
		if callErr != nil {
			return callErr
		}
		results = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (c *httpClient) doAnalyze(ctx context.Context, payload []byte) ([]recognizer.Entity, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + analyzePath)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.client.DoTimeout(req, resp, defaultRequestTimeout)
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-errCh:
		if err != nil {
			c.logger.WithError(err).Error("error performing recognizer request")
			return nil, err
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		c.logger.WithField("status", resp.StatusCode()).Error("non-OK response from recognizer")
		return nil, fmt.Errorf("recognizer returned status %d", resp.StatusCode())
	}

	var results []recognizer.Entity
	if err := json.Unmarshal(resp.Body(), &results); err != nil {
		return nil, fmt.Errorf("failed to decode recognizer response: %w", err)
	}
	return results, nil
}
