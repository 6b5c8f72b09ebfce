package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Academy Scheduling API",
        "description": "Session materialization, double-booking checks and monthly billing for sports academies",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Scheduling", "description": "Recurring classes, sessions and conflicts"},
        {"name": "Billing", "description": "Monthly charges and statements"},
        {"name": "Observability", "description": "Probes and counters"}
    ],
    "paths": {
        "/classes/{id}/sessions/materialize": {
            "post": {
                "tags": ["Scheduling"],
                "summary": "Materialize sessions of a class",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/MaterializeSessionsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Run in progress", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Configuration error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/academies/{id}/sessions/materialize": {
            "post": {
                "tags": ["Scheduling"],
                "summary": "Materialize sessions of every auto-generating class of an academy",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/MaterializeAcademyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{id}/sessions": {
            "post": {
                "tags": ["Scheduling"],
                "summary": "Create an ad-hoc session of a class",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Schedule conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{id}/exceptions": {
            "post": {
                "tags": ["Scheduling"],
                "summary": "Exclude a date from a class's recurrence",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateClassExceptionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/conflicts/check": {
            "post": {
                "tags": ["Scheduling"],
                "summary": "Check a proposed slot against an athlete's or coach's commitments",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ConflictCheckRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/athletes/{id}/extra-classes": {
            "post": {
                "tags": ["Scheduling"],
                "summary": "Link an athlete to one occurrence of a class outside their groups",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AddExtraClassRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Schedule conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/academies/{id}/charges/generate": {
            "post": {
                "tags": ["Billing"],
                "summary": "Generate monthly charges for an academy",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateChargesRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Run in progress", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/academies/{id}/charges/export": {
            "get": {
                "tags": ["Billing"],
                "summary": "Export a period's charges",
                "produces": ["text/csv", "application/pdf"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "period", "in": "query", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Statement file", "schema": {"type": "file"}}
                }
            }
        },
        "/academies/{id}/charges/statements": {
            "post": {
                "tags": ["Billing"],
                "summary": "Archive a period's statement and return a signed download link",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "period", "in": "query", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/statements/{token}": {
            "get": {
                "tags": ["Billing"],
                "summary": "Download an archived statement",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Statement file", "schema": {"type": "file"}},
                    "404": {"description": "Invalid or expired link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/charges/{id}/status": {
            "patch": {
                "tags": ["Billing"],
                "summary": "Record a payment outcome for a charge",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ChargeStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid transition", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Observability"],
                "summary": "Aggregated generator and request counters",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "MaterializeSessionsRequest": {
            "type": "object",
            "properties": {
                "weeksAhead": {"type": "integer", "minimum": 1, "maximum": 52},
                "from": {"type": "string", "format": "date"},
                "to": {"type": "string", "format": "date"}
            }
        },
        "MaterializeAcademyRequest": {
            "type": "object",
            "properties": {
                "weeksAhead": {"type": "integer", "minimum": 1, "maximum": 52}
            }
        },
        "CreateSessionRequest": {
            "type": "object",
            "required": ["date"],
            "properties": {
                "date": {"type": "string", "format": "date"},
                "startTime": {"type": "string", "example": "18:00"},
                "endTime": {"type": "string", "example": "19:00"},
                "coachId": {"type": "string"}
            }
        },
        "CreateClassExceptionRequest": {
            "type": "object",
            "required": ["date", "reason"],
            "properties": {
                "date": {"type": "string", "format": "date"},
                "reason": {"type": "string"},
                "kind": {"type": "string", "enum": ["holiday", "cancellation", "other"]}
            }
        },
        "ConflictCheckRequest": {
            "type": "object",
            "required": ["resourceKind", "resourceId", "start", "end"],
            "properties": {
                "resourceKind": {"type": "string", "enum": ["athlete", "coach"]},
                "resourceId": {"type": "string"},
                "start": {"type": "string", "format": "date-time"},
                "end": {"type": "string", "format": "date-time"}
            }
        },
        "AddExtraClassRequest": {
            "type": "object",
            "required": ["classId", "date"],
            "properties": {
                "classId": {"type": "string"},
                "date": {"type": "string", "format": "date"}
            }
        },
        "GenerateChargesRequest": {
            "type": "object",
            "required": ["period"],
            "properties": {
                "period": {"type": "string", "example": "2025-03"},
                "groupId": {"type": "string"},
                "skipDuplicates": {"type": "boolean", "default": true}
            }
        },
        "ChargeStatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["paid", "partial", "cancelled", "overdue"]},
                "paidAt": {"type": "string", "format": "date-time"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
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
