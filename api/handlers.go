package api

import (
	"errors"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/adpulse/pkg/campaign"
	"github.com/papercomputeco/adpulse/pkg/metrics"
	"github.com/papercomputeco/adpulse/pkg/report"
)

// ErrNoFile is the upload error for a request without a "file" part.
var ErrNoFile = errors.New("no file uploaded")

const (
	// uploadField is the multipart field holding the export.
	uploadField = "file"

	noFileMessage = "No file uploaded"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleUpload ingests the uploaded export and replies with
// {data, kpis, insights}.
func (s *Server) handleUpload(c *fiber.Ctx) error {
	fh, err := c.FormFile(uploadField)
	if err != nil {
		s.logger.Debug("rejecting upload", "error", errors.Join(ErrNoFile, err))
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: noFileMessage})
	}

	records, err := ingest(fh)
	// Large uploads spill to temporary files; drop them before the
	// generative round trip.
	c.Request().RemoveMultipartFormFiles()
	if err != nil {
		var pe *campaign.ParseError
		if errors.As(err, &pe) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: pe.Error()})
		}
		s.logger.Error("reading upload", "filename", fh.Filename, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to read upload"})
	}

	res, err := s.analyzer.Analyze(c.UserContext(), records, report.WithSource("upload", fh.Filename))
	if err != nil {
		var ve *metrics.ValidationError
		if errors.As(err, &ve) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{Error: ve.Error()})
		}
		s.logger.Error("analyzing upload", "filename", fh.Filename, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to analyze upload"})
	}

	return c.JSON(res)
}

// ingest reads every record and closes the upload before returning.
func ingest(fh *multipart.FileHeader) ([]*campaign.Record, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return campaign.Decode(f, campaign.FormatFor(fh.Filename))
}
