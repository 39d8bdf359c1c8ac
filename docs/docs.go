// Package docs registers the swagger spec served at /swagger.
// Regenerate with: swag init -g cmd/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Service health",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/jobs/run": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["Jobs"],
                "summary": "Trigger a job cycle",
                "responses": {
                    "200": {"description": "Cycle summary"},
                    "409": {"description": "A cycle is already running"},
                    "500": {"description": "Cycle finished with errors"}
                }
            }
        },
        "/api/jobs/last": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Jobs"],
                "summary": "Last completed run",
                "responses": {
                    "200": {"description": "Last run snapshot"}
                }
            }
        },
        "/api/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Status"],
                "summary": "Live status and rolling error counters",
                "responses": {
                    "200": {"description": "Status view"}
                }
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "V8 Consignment Job API",
	Description:      "Job orchestration service for V8 private consignment consultations",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
