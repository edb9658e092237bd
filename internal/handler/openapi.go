package handler

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/keydash/keydash/internal/openapi"
)

// OpenAPIHandler serves the API description.
type OpenAPIHandler struct {
	doc *openapi3.T
}

// NewOpenAPIHandler builds the document once; it does not change at runtime.
func NewOpenAPIHandler(baseURL, version string) *OpenAPIHandler {
	return &OpenAPIHandler{doc: openapi.Generate(baseURL, version)}
}

// ServeSpec writes the OpenAPI document.
// GET /openapi.json
func (h *OpenAPIHandler) ServeSpec(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.doc)
}
