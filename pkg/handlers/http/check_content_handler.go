package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/PromptSentry/PromptSentry/pkg/analyzer"
	"github.com/PromptSentry/PromptSentry/pkg/types"
)

type checkContentHandler struct {
	logger   *logrus.Logger
	analyzer *analyzer.Analyzer
}

func NewCheckContentHandler(logger *logrus.Logger, contentAnalyzer *analyzer.Analyzer) Handler {
	return &checkContentHandler{
		logger:   logger,
		analyzer: contentAnalyzer,
	}
}

// Handle runs the detection pipeline over the submitted content. Validation
// errors map to 400; internal faults map to 500 with an unsafe verdict so a
// broken pipeline never passes content through as safe.
func (s *checkContentHandler) Handle(c *fiber.Ctx) error {
	var req types.CheckContentRequest
	if err := c.BodyParser(&req); err != nil {
		s.logger.WithError(err).Error("failed to bind request")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrInvalidJsonPayload})
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	verdict, err := s.analyzer.CheckContent(c.Context(), req.Content, requestID, req.Metadata)
	if err != nil {
		if errors.Is(err, analyzer.ErrEmptyContent) || errors.Is(err, analyzer.ErrContentTooLarge) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		s.logger.WithError(err).WithField("request_id", requestID).Error("content check failed")
		return c.Status(fiber.StatusInternalServerError).JSON(types.CheckContentResponse{
			IsSafe:     false,
			Confidence: 0,
			RequestID:  requestID,
		})
	}

	return c.Status(fiber.StatusOK).JSON(verdict.ToResponse())
}
