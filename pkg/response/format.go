package response

import (
	"fmt"
	"strings"
)

// Format is an output format name
type Format string

const (
	FormatJSON    Format = "json"
	FormatJSONAPI Format = "jsonapi"
	FormatCSV     Format = "csv"
)

// ParseFormat parses a requested format, case-insensitively.
// An empty string means "unspecified" and is left for the selector to default.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatJSON, FormatJSONAPI, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// ContentType returns the HTTP content type for the format
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSONAPI:
		return "application/vnd.api+json"
	default:
		return "application/json"
	}
}

// Extension returns the file extension used for downloads
func (f Format) Extension() string {
	if f == FormatCSV {
		return "csv"
	}
	return "json"
}
