package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "ShootDesk API",
        "description": "Studio and lecture shoot booking, approval and on-site progress tracking.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Login and session identity"},
        {"name": "Bookings", "description": "Booking lifecycle and approval workflow"},
        {"name": "Assignments", "description": "Operator eligibility and assignment"},
        {"name": "Availability", "description": "Weekly operator availability"},
        {"name": "Progress", "description": "Shoot-day checkpoints"},
        {"name": "Observability", "description": "Health and metrics"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Login",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current user",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bookings": {
            "get": {
                "tags": ["Bookings"],
                "summary": "List bookings",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "week", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"},
                    {"name": "date", "in": "query", "type": "string"},
                    {"name": "requested_by", "in": "query", "type": "string"},
                    {"name": "operator_id", "in": "query", "type": "integer"},
                    {"name": "active_only", "in": "query", "type": "boolean"},
                    {"name": "updated_since", "in": "query", "type": "string", "format": "date-time"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Bookings"],
                "summary": "Create booking",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateBookingRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "423": {"description": "Locked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bookings/{id}": {
            "get": {
                "tags": ["Bookings"],
                "summary": "Get booking",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Bookings"],
                "summary": "Edit draft",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BookingFields"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bookings/{id}/actions": {
            "post": {
                "tags": ["Bookings"],
                "summary": "Apply workflow action",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BookingActionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid transition", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "423": {"description": "Locked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bookings/bulk-actions": {
            "post": {
                "tags": ["Bookings"],
                "summary": "Apply one action to many bookings",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkActionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bookings/copy-week": {
            "post": {
                "tags": ["Bookings"],
                "summary": "Copy a week's bookings as drafts",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CopyWeekRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bookings/{id}/history": {
            "get": {
                "tags": ["Bookings"],
                "summary": "Change history",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bookings/{id}/locate": {
            "get": {
                "tags": ["Bookings"],
                "summary": "Resolve a booking's week",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "current", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bookings/changes": {
            "get": {
                "tags": ["Bookings"],
                "summary": "Stream booking changes (server-sent events)",
                "security": [{"BearerAuth": []}],
                "produces": ["text/event-stream"],
                "parameters": [
                    {"name": "week", "in": "query", "type": "string"},
                    {"name": "booking_id", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Event stream"}
                }
            }
        },
        "/bookings/export": {
            "get": {
                "tags": ["Bookings"],
                "summary": "Export weekly roster",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "week", "in": "query", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        },
        "/bookings/{id}/eligible-operators": {
            "get": {
                "tags": ["Assignments"],
                "summary": "Eligible operators",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bookings/{id}/assignment": {
            "put": {
                "tags": ["Assignments"],
                "summary": "Assign operator",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignOperatorRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Operator not eligible", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Assignments"],
                "summary": "Unassign operator",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "reason", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bookings/{id}/assignment/acknowledge": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Operator acknowledges assignment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/availability": {
            "get": {
                "tags": ["Availability"],
                "summary": "Get weekly availability",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "week", "in": "query", "required": true, "type": "string"},
                    {"name": "operator_id", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Availability"],
                "summary": "Save or submit weekly availability",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AvailabilityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/progress/today": {
            "get": {
                "tags": ["Progress"],
                "summary": "Today's assigned shoots",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/progress/{bookingId}": {
            "get": {
                "tags": ["Progress"],
                "summary": "Progress of one shoot",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "bookingId", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/progress/{bookingId}/actions": {
            "post": {
                "tags": ["Progress"],
                "summary": "Record a checkpoint action",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "bookingId", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ProgressActionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Checkpoint rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "429": {"description": "Too many scans", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/checkpoints/{locationId}/token": {
            "get": {
                "tags": ["Progress"],
                "summary": "Issue a checkpoint token",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "locationId", "in": "path", "required": true, "type": "string"}
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
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "BookingFields": {
            "type": "object",
            "properties": {
                "category": {"type": "string", "enum": ["studio", "academy", "internal"]},
                "date": {"type": "string"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "location_id": {"type": "string"},
                "subject": {"type": "string"},
                "instructor": {"type": "string"},
                "details": {"type": "object"}
            },
            "required": ["category", "date", "start_time", "end_time", "location_id"]
        },
        "CreateBookingRequest": {
            "allOf": [
                {"$ref": "#/definitions/BookingFields"},
                {
                    "type": "object",
                    "properties": {
                        "submit": {"type": "boolean"},
                        "reason": {"type": "string"}
                    }
                }
            ]
        },
        "BookingActionRequest": {
            "type": "object",
            "properties": {
                "action": {"type": "string"},
                "reason": {"type": "string"},
                "changes": {"$ref": "#/definitions/BookingFields"}
            },
            "required": ["action"]
        },
        "BulkActionRequest": {
            "type": "object",
            "properties": {
                "action": {"type": "string"},
                "booking_ids": {"type": "array", "items": {"type": "integer"}},
                "reason": {"type": "string"}
            },
            "required": ["action", "booking_ids"]
        },
        "CopyWeekRequest": {
            "type": "object",
            "properties": {
                "source_week": {"type": "string"},
                "target_week": {"type": "string"},
                "requested_by": {"type": "string"}
            },
            "required": ["source_week", "target_week"]
        },
        "AssignOperatorRequest": {
            "type": "object",
            "properties": {
                "operator_id": {"type": "integer"},
                "override": {"type": "boolean"},
                "reason": {"type": "string"}
            },
            "required": ["operator_id"]
        },
        "DayAvailability": {
            "type": "object",
            "properties": {
                "available": {"type": "boolean"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"}
            }
        },
        "AvailabilityRequest": {
            "type": "object",
            "properties": {
                "week_start": {"type": "string"},
                "days": {"type": "object", "additionalProperties": {"$ref": "#/definitions/DayAvailability"}},
                "submit": {"type": "boolean"}
            },
            "required": ["week_start", "days"]
        },
        "ProgressActionRequest": {
            "type": "object",
            "properties": {
                "action": {"type": "string", "enum": ["departure", "checkpoint-scan", "start", "finish", "end-of-day"]},
                "token": {"type": "string"},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "proof_ref": {"type": "string"}
            },
            "required": ["action"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
