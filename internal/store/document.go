// ABOUTME: JSON document encoding, lenient decoding and shallow merge
// ABOUTME: ParseOrDefault is the explicit fallback policy for corrupt stored documents

package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// errTrailingData is returned when a stored document has content after the JSON object.
var errTrailingData = errors.New("trailing data after document")

// ParseDocument decodes stored document text. Numbers are kept as json.Number
// so integers survive a read-modify-write without losing precision.
// A literal "null" decodes to a nil Document without error.
func ParseDocument(text string) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}
	return doc, nil
}

// ParseOrDefault decodes stored document text, falling back to an empty
// document when the text is empty, malformed, null or not a JSON object.
func ParseOrDefault(text string) Document {
	doc, _ := parseOrDefault(text)
	return doc
}

// parseOrDefault is ParseOrDefault that also reports why it fell back.
func parseOrDefault(text string) (Document, error) {
	doc, err := ParseDocument(text)
	if err != nil || doc == nil {
		return Document{}, err
	}
	return doc, nil
}

// Merge returns a new document holding base's keys overwritten by patch's keys.
// Nested values are replaced, never merged recursively.
func Merge(base, patch Document) Document {
	merged := make(Document, len(base)+len(patch))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

// encodeDocument serializes a document for storage; nil becomes "{}".
func encodeDocument(doc Document) (string, error) {
	if doc == nil {
		return "{}", nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encoding document: %w", err)
	}
	return string(b), nil
}
