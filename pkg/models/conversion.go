package models

import "time"

// Conversion is an archived, successful conversion.
type Conversion struct {
	ID            string    `json:"id"`
	SourceName    string    `json:"source_name"`
	Filename      string    `json:"filename,omitempty"`
	Workflow      *Workflow `json:"workflow"`
	Warnings      []string  `json:"warnings"`
	NodeCount     int       `json:"node_count"`
	UnmappedCount int       `json:"unmapped_count"`
	CreatedAt     time.Time `json:"created_at"`
}
