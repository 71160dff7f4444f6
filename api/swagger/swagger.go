package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "TutorLink Marketplace API",
        "description": "Tutoring marketplace: professor search, bookings, reviews and admin reporting",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, token refresh and session management"},
        {"name": "Search", "description": "Public professor directory"},
        {"name": "Bookings", "description": "Booking lifecycle and receipts"},
        {"name": "Reviews", "description": "Public reviews and moderation"},
        {"name": "Feedback", "description": "Private post-session feedback"},
        {"name": "Preferences", "description": "Student search preferences"},
        {"name": "Admin", "description": "Dashboard, payments and exports"}
    ],
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
        "/professors": {
            "get": {
                "tags": ["Search"],
                "summary": "Search professors",
                "parameters": [
                    {"name": "subject_id", "in": "query", "type": "string"},
                    {"name": "level_id", "in": "query", "type": "string"},
                    {"name": "city_id", "in": "query", "type": "string"},
                    {"name": "min_rating", "in": "query", "type": "number"},
                    {"name": "max_hourly_rate", "in": "query", "type": "number"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "sort_by", "in": "query", "type": "string"},
                    {"name": "sort_order", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/professors/{id}": {
            "get": {
                "tags": ["Search"],
                "summary": "Professor public profile",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/professors/{id}/reviews": {
            "get": {
                "tags": ["Reviews"],
                "summary": "Approved reviews for a professor",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Reviews"],
                "summary": "Review a professor",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateReviewRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already reviewed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bookings": {
            "get": {
                "tags": ["Bookings"],
                "summary": "List bookings visible to the caller",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "payment_status", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Bookings"],
                "summary": "Book a tutoring session",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateBookingRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Slot unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bookings/{id}": {
            "get": {
                "tags": ["Bookings"],
                "summary": "Booking detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Bookings"],
                "summary": "Reschedule a booking",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateBookingRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Bookings"],
                "summary": "Cancel a booking",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Cancelled"},
                    "412": {"description": "Not cancellable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bookings/{id}/receipt": {
            "get": {
                "tags": ["Bookings"],
                "summary": "Download a booking receipt PDF",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "produces": ["application/pdf"],
                "responses": {
                    "200": {"description": "PDF receipt"}
                }
            }
        },
        "/me/preferences": {
            "get": {
                "tags": ["Preferences"],
                "summary": "Current student preferences",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/dashboard": {
            "get": {
                "tags": ["Admin"],
                "summary": "Operational summary",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/exports": {
            "post": {
                "tags": ["Admin"],
                "summary": "Queue a booking ledger export",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateBookingRequest": {
            "type": "object",
            "properties": {
                "professor_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "level_id": {"type": "string"},
                "date": {"type": "string", "example": "2026-09-15"},
                "start_time": {"type": "string", "example": "14:00"},
                "duration_minutes": {"type": "integer"},
                "notes": {"type": "string"},
                "booking_type": {"type": "string", "enum": ["online", "in_person"]}
            },
            "required": ["professor_id", "subject_id", "level_id", "date", "start_time", "duration_minutes"]
        },
        "UpdateBookingRequest": {
            "type": "object",
            "properties": {
                "subject_id": {"type": "string"},
                "level_id": {"type": "string"},
                "date": {"type": "string"},
                "start_time": {"type": "string"},
                "duration_minutes": {"type": "integer"},
                "notes": {"type": "string"},
                "booking_type": {"type": "string"}
            },
            "required": ["subject_id", "level_id", "date", "start_time", "duration_minutes"]
        },
        "CreateReviewRequest": {
            "type": "object",
            "properties": {
                "rating": {"type": "integer", "minimum": 1, "maximum": 5},
                "comment": {"type": "string"}
            },
            "required": ["rating"]
        },
        "CreateExportRequest": {
            "type": "object",
            "properties": {
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "status": {"type": "string"},
                "payment_status": {"type": "string"},
                "from": {"type": "string"},
                "to": {"type": "string"}
            },
            "required": ["format"]
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
