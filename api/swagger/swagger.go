package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Papeletas API",
        "description": "Gateway for the municipal papeletas de salida service",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Employee sessions"},
        {"name": "Papeletas", "description": "Exit slip listing and registration"},
        {"name": "Summary", "description": "Dashboard totals"},
        {"name": "Exports", "description": "Asynchronous roster exports"},
        {"name": "Admin", "description": "Maintenance endpoints"}
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate employee by DNI",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unknown document", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Revoke session",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/papeletas": {
            "get": {
                "tags": ["Papeletas"],
                "summary": "List papeletas",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "pagina", "in": "query", "type": "integer"},
                    {"name": "filtro_estado", "in": "query", "type": "integer", "description": "0 all, 1 approved, 2 pending"},
                    {"name": "busqueda", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Page out of range", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Papeletas"],
                "summary": "Register papeleta",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id_motivo", "in": "formData", "required": true, "type": "string"},
                    {"name": "fecha_papeleta", "in": "formData", "required": true, "type": "string"},
                    {"name": "hora_salida", "in": "formData", "required": true, "type": "string"},
                    {"name": "hora_retorno", "in": "formData", "required": true, "type": "string"},
                    {"name": "lugar_destino", "in": "formData", "required": true, "type": "string"},
                    {"name": "motivo", "in": "formData", "type": "string"},
                    {"name": "archivo", "in": "formData", "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/papeletas/{id}/documento": {
            "get": {
                "tags": ["Papeletas"],
                "summary": "Download papeleta PDF",
                "security": [{"BearerAuth": []}],
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF document"}
                }
            }
        },
        "/resumen": {
            "get": {
                "tags": ["Summary"],
                "summary": "Papeleta totals",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue roster export",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export job status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown job", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/download": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download export artifact",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "403": {"description": "Invalid token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/exports/cleanup": {
            "post": {
                "tags": ["Admin"],
                "summary": "Purge expired export artifacts",
                "parameters": [
                    {"name": "X-Admin-Key", "in": "header", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "nro_documento": {"type": "string"}
            },
            "required": ["nro_documento"]
        },
        "ExportRequest": {
            "type": "object",
            "properties": {
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "filtro_estado": {"type": "integer"},
                "busqueda": {"type": "string"}
            },
            "required": ["format"]
        },
        "Papeleta": {
            "type": "object",
            "properties": {
                "id_papeleta": {"type": "string"},
                "numero_papeleta": {"type": "string"},
                "fecha_papeleta": {"type": "string"},
                "hora_salida": {"type": "string"},
                "hora_retorno": {"type": "string"},
                "lugar_destino": {"type": "string"},
                "motivo_nombre": {"type": "string"},
                "motivo": {"type": "string"},
                "estado": {"type": "string", "enum": ["0", "1", "2"]}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "totalRecords": {"type": "integer"},
                "totalPages": {"type": "integer"},
                "currentPage": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
