package http

import (
	_ "embed"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

// OpenAPIPath is where the OpenAPI document is served.
const OpenAPIPath = "/.well-known/openapi.json"

//go:embed openapi.json
var openAPISpec []byte

// openAPIDoc exposes the embedded document through the swag registry, which
// the Swagger UI reads for /swagger/doc.json.
type openAPIDoc struct{}

func (openAPIDoc) ReadDoc() string { return string(openAPISpec) }

func init() {
	swag.Register(swag.Name, openAPIDoc{})
}

// OpenAPISpec serves the embedded OpenAPI document.
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	w.Write(openAPISpec)
}

// SwaggerUI serves the Swagger UI pointed at the OpenAPI document.
func SwaggerUI() http.HandlerFunc {
	return httpSwagger.Handler(httpSwagger.URL(OpenAPIPath))
}
