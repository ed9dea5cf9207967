package schema

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const (
	Summary  = "summary"
	Baseline = "baseline"
)

// ErrInvalidDocument is returned by Check for unparseable or non-conforming documents.
var ErrInvalidDocument = errors.New("document does not match schema")

// Validate returns the schema violations of doc against the named embedded schema.
// A nil slice means doc is valid.
func Validate(name string, doc []byte) ([]string, error) {
	raw, err := schemaFS.ReadFile("schemas/" + name + ".schema.json")
	if err != nil {
		return nil, fmt.Errorf("unknown schema %q", name)
	}
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(raw), gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validate against %s: %w", name, err)
	}
	if result.Valid() {
		return nil, nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		errs = append(errs, e.String())
	}
	return errs, nil
}

// Check is Validate folded into a single error wrapping ErrInvalidDocument.
func Check(name string, doc []byte) error {
	violations, err := Validate(name, doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if len(violations) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(violations, "; "))
	}
	return nil
}
