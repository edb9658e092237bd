// Package openapi describes the keydash HTTP API as an OpenAPI 3.1 document.
package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// Generate builds the OpenAPI document for the sign-in, session and API key
// listing endpoints, served from baseURL.
func Generate(baseURL, version string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "keydash API",
			Description: "Admin sign-in and per-admin API key listing.",
			Version:     version,
		},
		Servers: openapi3.Servers{
			{URL: baseURL},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	doc.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}
	doc.Components.SecuritySchemes["sessionCookie"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type: "apiKey",
			In:   "cookie",
			Name: "keydash.session-token",
		},
	}

	doc.Components.Schemas["ErrorResponse"] = objectSchema(openapi3.Schemas{
		"error": stringSchema(),
	}, "error")
	doc.Components.Schemas["Identity"] = objectSchema(openapi3.Schemas{
		"id":       stringSchema(),
		"username": stringSchema(),
	}, "id", "username")
	doc.Components.Schemas["APIKey"] = objectSchema(openapi3.Schemas{
		"id":        stringSchema(),
		"key":       stringSchema(),
		"createdAt": &openapi3.SchemaRef{Value: &openapi3.Schema{Description: "Timestamp as stored"}},
		"active":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
	}, "id", "key", "active")

	doc.Paths = openapi3.NewPaths()
	addSessionPaths(doc)
	addAPIKeyPaths(doc)
	return doc
}

func addSessionPaths(doc *openapi3.T) {
	credentials := objectSchema(openapi3.Schemas{
		"username": stringSchema(),
		"password": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "password"}},
	}, "username", "password")

	sessionResponse := objectSchema(openapi3.Schemas{
		"token":      stringSchema(),
		"token_type": stringSchema(),
		"expires_in": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}}},
		"user":       openapi3.NewSchemaRef("#/components/schemas/Identity", nil),
	}, "token", "user")

	login := &openapi3.Operation{
		Tags:        []string{"auth"},
		Summary:     "Sign in with username and password",
		OperationID: "createSession",
		RequestBody: &openapi3.RequestBodyRef{
			Value: &openapi3.RequestBody{
				Required: true,
				Content:  openapi3.NewContentWithJSONSchemaRef(credentials),
			},
		},
		Responses: newResponses("200", "Signed in", sessionResponse, "400", "401", "429", "500"),
	}

	session := &openapi3.Operation{
		Tags:        []string{"auth"},
		Summary:     "Read the current session",
		OperationID: "getSession",
		Security:    sessionSecurity(),
		Responses: newResponses("200", "Current session, or an empty object", objectSchema(openapi3.Schemas{
			"user":    openapi3.NewSchemaRef("#/components/schemas/Identity", nil),
			"expires": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"}},
		})),
	}

	logout := &openapi3.Operation{
		Tags:        []string{"auth"},
		Summary:     "Clear the session cookie",
		OperationID: "deleteSession",
		Responses: newResponses("200", "Signed out", objectSchema(openapi3.Schemas{
			"success": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
		})),
	}

	doc.Paths.Set("/api/auth/session", &openapi3.PathItem{Post: login, Get: session, Delete: logout})
}

func addAPIKeyPaths(doc *openapi3.T) {
	list := objectSchema(openapi3.Schemas{
		"success": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
		"apikeys": &openapi3.SchemaRef{Value: &openapi3.Schema{
			Type:  &openapi3.Types{"array"},
			Items: openapi3.NewSchemaRef("#/components/schemas/APIKey", nil),
		}},
	}, "success", "apikeys")

	op := &openapi3.Operation{
		Tags:        []string{"apikeys"},
		Summary:     "List the signed-in admin's API keys",
		OperationID: "listAPIKeys",
		Security:    sessionSecurity(),
		Responses:   newResponses("200", "API keys of the session user", list, "400", "401", "500"),
	}

	doc.Paths.Set("/api/apikeys", &openapi3.PathItem{Get: op})
}

func sessionSecurity() *openapi3.SecurityRequirements {
	return &openapi3.SecurityRequirements{
		{"bearerAuth": {}},
		{"sessionCookie": {}},
	}
}

// newResponses builds a success response plus one ErrorResponse entry per
// listed error status.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef, errorStatuses ...string) *openapi3.Responses {
	responses := openapi3.NewResponses()

	successDesc := description
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &successDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})

	errorRef := openapi3.NewSchemaRef("#/components/schemas/ErrorResponse", nil)
	for _, status := range errorStatuses {
		desc := errorDescriptions[status]
		responses.Set(status, &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &desc,
				Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
			},
		})
	}
	return responses
}

var errorDescriptions = map[string]string{
	"400": "Bad request",
	"401": "Unauthorized",
	"429": "Too many requests",
	"500": "Internal server error",
}

func objectSchema(props openapi3.Schemas, required ...string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:       &openapi3.Types{"object"},
			Properties: props,
			Required:   required,
		},
	}
}

func stringSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}}
}
