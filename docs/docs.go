// Package docs registers the OpenAPI description served by the swagger UI.
// Regenerate with `swag init -g cmd/modelhost/docs.go` after changing handlers.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/v2": {
            "get": {
                "produces": ["application/json"],
                "summary": "Server metadata",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ServerMetadata"}}}
            }
        },
        "/v2/health/live": {
            "get": {"summary": "Liveness", "responses": {"200": {"description": "OK"}}}
        },
        "/v2/health/ready": {
            "get": {"summary": "Readiness", "responses": {"200": {"description": "OK"}, "503": {"description": "Not ready"}}}
        },
        "/v2/models/{name}": {
            "get": {
                "produces": ["application/json"],
                "summary": "Model metadata",
                "parameters": [{"type": "string", "name": "name", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelMetadata"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/v2/models/{name}/ready": {
            "get": {
                "summary": "Model readiness",
                "parameters": [{"type": "string", "name": "name", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Not ready"}}
            }
        },
        "/v2/models/{name}/infer": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Run inference",
                "parameters": [
                    {"type": "string", "name": "name", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.InferRequest"}},
                    {"type": "string", "name": "log", "in": "query", "description": "Per-request log level (off, error, info, debug, 1)"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.InferResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "413": {"description": "Payload Too Large", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "504": {"description": "Gateway Timeout", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/v2/repository/index": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Repository index",
                "parameters": [{"name": "body", "in": "body", "schema": {"$ref": "#/definitions/types.RepositoryIndexRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/types.RepositoryIndexEntry"}}}}
            }
        },
        "/v2/repository/models/{name}/load": {
            "post": {
                "summary": "Load a model",
                "parameters": [{"type": "string", "name": "name", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}, "503": {"description": "Load failed"}}
            }
        },
        "/v2/repository/models/{name}/unload": {
            "post": {
                "summary": "Unload a model",
                "parameters": [{"type": "string", "name": "name", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/models": {
            "get": {
                "produces": ["application/json"],
                "summary": "List repository models",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelsResponse"}}}
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "summary": "Manager status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}
            }
        },
        "/healthz": {"get": {"summary": "Process health", "responses": {"200": {"description": "ok"}}}},
        "/readyz": {"get": {"summary": "Process readiness", "responses": {"200": {"description": "ready"}, "503": {"description": "loading"}}}},
        "/metrics": {"get": {"summary": "Prometheus metrics", "responses": {"200": {"description": "OK"}}}}
    },
    "definitions": {
        "types.Tensor": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "input"},
                "datatype": {"type": "string", "example": "INT64"},
                "shape": {"type": "array", "items": {"type": "integer"}},
                "data": {"type": "array", "items": {}}
            }
        },
        "types.RequestedOutput": {
            "type": "object",
            "properties": {"name": {"type": "string", "example": "output"}, "parameters": {"type": "object"}}
        },
        "types.InferRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "42"},
                "parameters": {"type": "object"},
                "inputs": {"type": "array", "items": {"$ref": "#/definitions/types.Tensor"}},
                "outputs": {"type": "array", "items": {"$ref": "#/definitions/types.RequestedOutput"}}
            }
        },
        "types.InferResponse": {
            "type": "object",
            "properties": {
                "model_name": {"type": "string", "example": "t5-small"},
                "model_version": {"type": "string", "example": "1"},
                "id": {"type": "string", "example": "42"},
                "parameters": {"type": "object"},
                "outputs": {"type": "array", "items": {"$ref": "#/definitions/types.Tensor"}}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}, "code": {"type": "integer", "example": 400}}
        },
        "types.ServerMetadata": {
            "type": "object",
            "properties": {"name": {"type": "string"}, "version": {"type": "string"}, "extensions": {"type": "array", "items": {"type": "string"}}}
        },
        "types.TensorMetadata": {
            "type": "object",
            "properties": {"name": {"type": "string"}, "datatype": {"type": "string"}, "shape": {"type": "array", "items": {"type": "integer"}}}
        },
        "types.ModelMetadata": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "versions": {"type": "array", "items": {"type": "string"}},
                "platform": {"type": "string"},
                "inputs": {"type": "array", "items": {"$ref": "#/definitions/types.TensorMetadata"}},
                "outputs": {"type": "array", "items": {"$ref": "#/definitions/types.TensorMetadata"}}
            }
        },
        "types.RepositoryIndexRequest": {
            "type": "object",
            "properties": {"ready": {"type": "boolean"}}
        },
        "types.RepositoryIndexEntry": {
            "type": "object",
            "properties": {"name": {"type": "string"}, "version": {"type": "string"}, "state": {"type": "string", "example": "READY"}, "reason": {"type": "string"}}
        },
        "types.Model": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "version": {"type": "string"},
                "versions": {"type": "array", "items": {"type": "string"}},
                "backend": {"type": "string"},
                "path": {"type": "string"},
                "error": {"type": "string"}
            }
        },
        "types.ModelsResponse": {
            "type": "object",
            "properties": {"models": {"type": "array", "items": {"$ref": "#/definitions/types.Model"}}}
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "instances": {"type": "array", "items": {"type": "object"}},
                "state": {"type": "string"},
                "last_error": {"type": "string"},
                "uptime_seconds": {"type": "integer"},
                "server_time_unix": {"type": "integer"},
                "loads_total": {"type": "integer"},
                "unloads_total": {"type": "integer"},
                "warmups_in_progress": {"type": "integer"},
                "draining_count": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "modelhost API",
	Description:      "KServe v2 inference and model repository API.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
