package web

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dukex/flowbridge/pkg/converter"
	"github.com/dukex/flowbridge/pkg/mappings"
	"github.com/dukex/flowbridge/pkg/models"
	"github.com/dukex/flowbridge/pkg/persistence"
	"github.com/dukex/flowbridge/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// DefaultMaxUploadSize bounds uploaded blueprints.
const DefaultMaxUploadSize = 16 << 20

type APIHandlers struct {
	conversionService *services.Conversion
	table             models.MappingTable
	validator         *validator.Validate
	logger            *slog.Logger
	maxUploadSize     int64
}

func NewAPIHandlers(
	conversionService *services.Conversion,
	table models.MappingTable,
	validator *validator.Validate,
	logger *slog.Logger,
	maxUploadSize int64,
) *APIHandlers {
	if maxUploadSize <= 0 {
		maxUploadSize = DefaultMaxUploadSize
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &APIHandlers{
		conversionService: conversionService,
		table:             table,
		validator:         validator,
		logger:            logger,
		maxUploadSize:     maxUploadSize,
	}
}

// Register mounts every route on app.
func (h *APIHandlers) Register(app fiber.Router) {
	app.Get("/health", h.HealthCheck)
	app.Get("/mappings", h.GetMappings)

	app.Post("/convert", h.ConvertUpload)
	app.Post("/convert/json", h.ConvertJSON)

	c := app.Group("/conversions")
	c.Get("/", h.GetConversions)
	c.Get("/:id", h.GetConversion)
	c.Get("/:id/workflow", h.DownloadWorkflow)
	c.Delete("/:id", h.DeleteConversion)
}

// ConvertUpload converts the blueprint uploaded in the multipart field "file".
func (h *APIHandlers) ConvertUpload(c fiber.Ctx) error {
	header, err := c.FormFile(UploadField)
	if err != nil {
		return badRequest(c, "No file part in the request")
	}

	if header.Filename == "" {
		return badRequest(c, "No file selected")
	}

	if !strings.EqualFold(filepath.Ext(header.Filename), ".json") {
		return badRequest(c, "Invalid file type. Please upload a .json file.")
	}

	if header.Size > h.maxUploadSize {
		return payloadTooLarge(c, fmt.Sprintf("File exceeds the %d byte upload limit", h.maxUploadSize))
	}

	file, err := header.Open()
	if err != nil {
		return internalError(c, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadSize+1))
	if err != nil {
		return internalError(c, err)
	}

	if int64(len(data)) > h.maxUploadSize {
		return payloadTooLarge(c, fmt.Sprintf("File exceeds the %d byte upload limit", h.maxUploadSize))
	}

	return h.convert(c, header.Filename, data)
}

// ConvertJSON converts a blueprint sent as the raw request body.
func (h *APIHandlers) ConvertJSON(c fiber.Ctx) error {
	body := c.Body()

	if len(strings.TrimSpace(string(body))) == 0 {
		return badRequest(c, "Request body is empty")
	}

	if int64(len(body)) > h.maxUploadSize {
		return payloadTooLarge(c, fmt.Sprintf("Body exceeds the %d byte upload limit", h.maxUploadSize))
	}

	return h.convert(c, "", body)
}

func (h *APIHandlers) convert(c fiber.Ctx, filename string, data []byte) error {
	response, err := h.conversionService.Convert(c.Context(), services.ConvertRequest{
		Filename: filename,
		Data:     data,
	})
	if err != nil {
		if !converter.IsInputError(err) {
			h.logger.ErrorContext(c.Context(), "Conversion failed", "filename", filename, "error", err)
		}

		return handleServiceError(c, err)
	}

	return c.JSON(ConvertResponse{
		Success:      true,
		Workflow:     response.Workflow,
		Warnings:     response.Warnings,
		Stats:        response.Stats,
		ConversionID: response.ConversionID,
	})
}

func (h *APIHandlers) GetMappings(c fiber.Ctx) error {
	summaries := mappings.Describe(h.table)

	return c.JSON(MappingsResponse{
		Count:    len(summaries),
		Mappings: summaries,
	})
}

func (h *APIHandlers) GetConversions(c fiber.Ctx) error {
	query, err := h.parseListConversionsQuery(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.conversionService.ListConversions(c.Context(), services.ListConversionsRequest{
		Limit:     query.Limit,
		Offset:    query.Offset,
		SortOrder: query.SortOrder,
	})
	if err != nil {
		return h.serviceError(c, err)
	}

	summaries := make([]ConversionSummary, 0, len(result.Conversions))
	for _, conversion := range result.Conversions {
		summaries = append(summaries, NewConversionSummary(conversion))
	}

	return c.JSON(fiber.Map{
		"conversions":   summaries,
		"total_count":   result.TotalCount,
		"has_next_page": result.HasNextPage,
	})
}

// parseListConversionsQuery parses and validates query parameters for listing conversions.
func (h *APIHandlers) parseListConversionsQuery(c fiber.Ctx) (*ListConversionsQuery, error) {
	query := &ListConversionsQuery{
		SortOrder: strings.ToLower(c.Query("sort")),
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, err
		}

		query.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, err
		}

		query.Offset = offset
	}

	if err := h.validator.Struct(query); err != nil {
		return nil, err
	}

	return query, nil
}

func (h *APIHandlers) GetConversion(c fiber.Ctx) error {
	conversion, err := h.conversionService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return h.serviceError(c, err)
	}

	return c.JSON(conversion)
}

// DownloadWorkflow serves the archived n8n workflow as a file attachment.
func (h *APIHandlers) DownloadWorkflow(c fiber.Ctx) error {
	conversion, err := h.conversionService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return h.serviceError(c, err)
	}

	c.Attachment(conversion.ID + ".n8n.json")

	return c.JSON(conversion.Workflow)
}

func (h *APIHandlers) DeleteConversion(c fiber.Ctx) error {
	err := h.conversionService.Delete(c.Context(), c.Params("id"))
	if err != nil {
		return h.serviceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	message, healthy := h.conversionService.HealthCheck(c.Context())

	status := "healthy"
	httpStatus := http.StatusOK

	if !healthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	return c.Status(httpStatus).JSON(HealthResponse{
		Status:        status,
		Version:       Version,
		MappingsCount: len(h.table),
		Archive: ArchiveHealth{
			Enabled: h.conversionService.Archiving(),
			Healthy: healthy,
			Message: message,
		},
	})
}

func (h *APIHandlers) serviceError(c fiber.Ctx, err error) error {
	if !services.IsValidationError(err) && !services.IsUnavailableError(err) && !persistence.IsConversionNotFound(err) {
		h.logger.ErrorContext(c.Context(), "Request failed", "path", c.Path(), "error", err)
	}

	return handleServiceError(c, err)
}
