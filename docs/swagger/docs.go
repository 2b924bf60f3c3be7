// Package swagger holds the OpenAPI document served at /swagger.
package swagger

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
        "/chatbot/messages": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["chatbot"],
                "summary": "Send a message to the travel assistant",
                "parameters": [
                    {"type": "string", "name": "X-Session-ID", "in": "header"},
                    {"type": "string", "name": "Idempotency-Key", "in": "header"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.SendMessageRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.SendMessageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/chatbot/conversations/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["chatbot"],
                "summary": "Get conversation history",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ConversationResponse"}},
                    "304": {"description": "Not Modified"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/chatbot/suggestions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["chatbot"],
                "summary": "Suggested starter questions",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.SuggestionsResponse"}}}
            }
        },
        "/categories": {
            "get": {
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "List active categories",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/listings": {
            "get": {
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "Browse listings",
                "parameters": [
                    {"type": "string", "name": "category", "in": "query"},
                    {"type": "string", "name": "region", "in": "query"},
                    {"type": "string", "name": "q", "in": "query"},
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "page_size", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "304": {"description": "Not Modified"}}
            }
        },
        "/listings/featured": {
            "get": {
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "Featured listings",
                "parameters": [{"type": "string", "name": "category", "in": "query"}, {"type": "integer", "name": "limit", "in": "query"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/listings/{slug}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "Listing detail",
                "parameters": [{"type": "string", "name": "slug", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}}
            }
        },
        "/routes": {
            "get": {
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "Travel routes",
                "parameters": [{"type": "boolean", "name": "featured", "in": "query"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/routes/{slug}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "Route detail",
                "parameters": [{"type": "string", "name": "slug", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}}
            }
        },
        "/admin/listings": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Create a listing",
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}, "403": {"description": "Forbidden"}, "409": {"description": "Conflict"}}
            }
        },
        "/admin/listings/{id}": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Update a listing",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}, "409": {"description": "Conflict"}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Deactivate a listing",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found"}}
            }
        },
        "/admin/categories": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Create a category",
                "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}}
            }
        }
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "handlers.SendMessageRequest": {
            "type": "object",
            "required": ["message"],
            "properties": {
                "message": {"type": "string"},
                "sessionId": {"type": "string"},
                "conversationId": {"type": "integer"}
            }
        },
        "handlers.SendMessageResponse": {
            "type": "object",
            "properties": {
                "conversationId": {"type": "integer"},
                "message": {"type": "string"}
            }
        },
        "handlers.ConversationResponse": {
            "type": "object",
            "properties": {
                "messages": {"type": "array", "items": {"type": "object"}}
            }
        },
        "handlers.SuggestionsResponse": {
            "type": "object",
            "properties": {
                "suggestions": {"type": "array", "items": {"type": "string"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Namibia Travel Portal API",
	Description:      "Catalog browsing, admin writes and the travel assistant chatbot.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
