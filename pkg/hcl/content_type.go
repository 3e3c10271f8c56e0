package hcl

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
)

const (
	// ContentTypeHCL is the MIME type for HCL experiments
	ContentTypeHCL = "application/vnd.hcl"

	// ContentTypeHCLText is accepted as an alias of ContentTypeHCL
	ContentTypeHCLText = "text/x-hcl"

	// ContentTypeJSON is the standard MIME type for JSON
	ContentTypeJSON = "application/json"
)

// DetectContentType reads the request body and decides whether it holds JSON
// or HCL. The Content-Type header wins when it names either format; otherwise
// the body is inspected. Unknown content defaults to JSON.
func DetectContentType(r *http.Request) (string, []byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read request body: %w", err)
	}

	if contentType := r.Header.Get("Content-Type"); contentType != "" {
		if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
			switch mediaType {
			case ContentTypeHCL, ContentTypeHCLText:
				return ContentTypeHCL, body, nil
			case ContentTypeJSON:
				return ContentTypeJSON, body, nil
			}
		}
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] != '{' && trimmed[0] != '[' && IsHCL(trimmed) {
		return ContentTypeHCL, body, nil
	}
	return ContentTypeJSON, body, nil
}

// IsHCLBasedOnExtension reports whether filename carries the .hcl extension.
func IsHCLBasedOnExtension(filename string) bool {
	return filepath.Ext(filename) == ".hcl"
}
