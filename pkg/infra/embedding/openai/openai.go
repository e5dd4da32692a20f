package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"

	"github.com/PromptSentry/PromptSentry/pkg/domain/embedding"
)

const (
	openAIEmbeddingsURL   = "https://api.openai.com/v1/embeddings"
	defaultRequestTimeout = 30 * time.Second
)

type embeddingService struct {
	client *fasthttp.Client
	apiKey string
	model  string
	logger *logrus.Logger
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingData struct {
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
}

type openAIEmbeddingResponse struct {
	Data []embeddingData `json:"data"`
}

// NewOpenAIEmbeddingService builds an embedding.Creator backed by the OpenAI
// embeddings API. Vectors are L2-normalized before being returned so cosine
// similarity reduces to a dot product downstream.
func NewOpenAIEmbeddingService(client *fasthttp.Client, apiKey, model string, logger *logrus.Logger) embedding.Creator {
	return &embeddingService{
		client: client,
		apiKey: apiKey,
		model:  model,
		logger: logger,
	}
}

func (s *embeddingService) Generate(ctx context.Context, text string) (*embedding.Embedding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pBytes, err := json.Marshal(embeddingRequest{
		Model: s.model,
		Input: text,
	})
	if err != nil {
		s.logger.WithError(err).Error("failed to marshal embedding request payload")
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(openAIEmbeddingsURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))
	req.SetBody(pBytes)

	if err := s.doRequestWithContext(ctx, req, resp); err != nil {
		return nil, err
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		s.logger.WithField("response", string(resp.Body())).Error("non-OK response from embeddings API")
		return nil, fmt.Errorf("%w: %d", embedding.ErrProviderNonOKResponse, resp.StatusCode())
	}

	var embResp openAIEmbeddingResponse
	if err := json.Unmarshal(resp.Body(), &embResp); err != nil {
		s.logger.WithError(err).Error("failed to decode embeddings response")
		return nil, err
	}

	if len(embResp.Data) == 0 || len(embResp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embeddings from API")
	}

	vector := embResp.Data[0].Embedding
	normalizeVector(vector)

	return &embedding.Embedding{
		Value:     vector,
		CreatedAt: time.Now(),
	}, nil
}

func (s *embeddingService) doRequestWithContext(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.client.DoTimeout(req, resp, defaultRequestTimeout)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			s.logger.WithError(err).Error("error performing HTTP request for embeddings")
		}
		return err
	}
}

func normalizeVector(v []float64) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += val * val
	}

	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return
	}

	for i := range v {
		v[i] /= norm
	}
}
