package handlers

import (
	"context"
	"io"

	"plantmart/internal/classifier"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Diagnoser is the classifier as seen by the HTTP layer.
type Diagnoser interface {
	Diagnose(ctx context.Context, img classifier.Image) (*classifier.Diagnosis, error)
}

// DiagnoseHandler forwards leaf photos to the classifier.
type DiagnoseHandler struct {
	classifier Diagnoser
	log        logrus.FieldLogger
}

// NewDiagnoseHandler creates a new DiagnoseHandler.
func NewDiagnoseHandler(classifier Diagnoser, log logrus.FieldLogger) *DiagnoseHandler {
	return &DiagnoseHandler{
		classifier: classifier,
		log:        log.WithField("handler", "diagnose"),
	}
}

// RegisterRoutes registers the diagnosis route.
func (h *DiagnoseHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/diagnose", h.HandleDiagnose)
}

// HandleDiagnose reads the multipart "file" field and returns the diagnosis.
func (h *DiagnoseHandler) HandleDiagnose(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": classifier.MsgNotImage,
			"error":   err.Error(),
		})
	}
	file, err := header.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Could not read upload",
			"error":   err.Error(),
		})
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Could not read upload",
			"error":   err.Error(),
		})
	}

	diagnosis, err := h.classifier.Diagnose(c.UserContext(), classifier.Image{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		h.log.WithField("filename", header.Filename).WithError(err).Warn("diagnosis failed")
		return respondError(c, err, classifier.MsgServerError)
	}

	return c.JSON(fiber.Map{
		"diagnosis":     diagnosis,
		"lowConfidence": diagnosis.LowConfidence(),
		"urgent":        diagnosis.Urgent(),
	})
}
