// Package web provides HTTP handlers and REST API endpoints for blueprint conversion.
package web

import (
	"time"

	"github.com/dukex/flowbridge/pkg/converter"
	"github.com/dukex/flowbridge/pkg/mappings"
	"github.com/dukex/flowbridge/pkg/models"
	"github.com/moogar0880/problems"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// UploadField is the multipart field carrying the blueprint file.
const UploadField = "file"

// ErrorResponse is an RFC 7807 problem document flagged as a failed request.
type ErrorResponse struct {
	*problems.Problem

	Success bool `json:"success"`
}

// ConvertResponse is the body of a successful conversion.
type ConvertResponse struct {
	Success      bool             `json:"success"`
	Workflow     *models.Workflow `json:"n8n_workflow"`
	Warnings     []string         `json:"warnings"`
	Stats        converter.Stats  `json:"stats"`
	ConversionID string           `json:"conversion_id,omitempty"`
}

// ListConversionsQuery holds the query parameters of the archive listing.
type ListConversionsQuery struct {
	Limit     int    `validate:"omitempty,min=1,max=100"`
	Offset    int    `validate:"min=0"`
	SortOrder string `validate:"omitempty,oneof=asc desc"`
}

// ConversionSummary is an archived conversion without its workflow body.
type ConversionSummary struct {
	ID            string    `json:"id"`
	SourceName    string    `json:"source_name"`
	Filename      string    `json:"filename,omitempty"`
	WorkflowID    string    `json:"workflow_id"`
	NodeCount     int       `json:"node_count"`
	UnmappedCount int       `json:"unmapped_count"`
	WarningCount  int       `json:"warning_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewConversionSummary summarizes an archived conversion.
func NewConversionSummary(conversion *models.Conversion) ConversionSummary {
	summary := ConversionSummary{
		ID:            conversion.ID,
		SourceName:    conversion.SourceName,
		Filename:      conversion.Filename,
		NodeCount:     conversion.NodeCount,
		UnmappedCount: conversion.UnmappedCount,
		WarningCount:  len(conversion.Warnings),
		CreatedAt:     conversion.CreatedAt,
	}

	if conversion.Workflow != nil {
		summary.WorkflowID = conversion.Workflow.ID
	}

	return summary
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string        `json:"status"`
	Version       string        `json:"version"`
	MappingsCount int           `json:"mappings_count"`
	Archive       ArchiveHealth `json:"archive"`
}

type ArchiveHealth struct {
	Enabled bool   `json:"enabled"`
	Healthy bool   `json:"healthy"`
	Message string `json:"message"`
}

// MappingsResponse is the body of GET /mappings.
type MappingsResponse struct {
	Count    int                `json:"count"`
	Mappings []mappings.Summary `json:"mappings"`
}
