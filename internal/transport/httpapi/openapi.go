// # internal/transport/httpapi/openapi.go
package httpapi

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.json
var openAPIDocument []byte

// LoadSpec parses and validates the embedded API description.
func LoadSpec() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPIDocument)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	return doc, nil
}

// documentedRoutes lists "METHOD /path" for every operation in doc.
func documentedRoutes(doc *openapi3.T) map[string]string {
	out := make(map[string]string)
	for path, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for method, op := range item.Operations() {
			if op == nil {
				continue
			}
			out[method+" "+path] = op.OperationID
		}
	}
	return out
}
