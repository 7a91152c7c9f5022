package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DecodeOutput parses interpreter stdout as a single JSON document.
// Numbers decode as json.Number so integer and floating-point values keep
// their exact representation. Non-whitespace content after the document is
// an error: a well-behaved operation emits exactly one document.
func DecodeOutput(output string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(output))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing content after JSON document")
	}

	return v, nil
}
