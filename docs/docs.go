// Package docs provides Swagger documentation for the TravelCover API.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "TravelCover API",
        "description": "Travel insurance pricing and underwriting API.\n\n1. **Quotes** - Underwrite and price a travel-insurance request\n2. **Underwriting** - Dry-run eligibility evaluation without pricing\n3. **Reference** - Inspect temporally-versioned reference data",
        "contact": {
            "name": "API Support",
            "url": "https://github.com/apines/go-travelcover"
        },
        "license": {
            "name": "MIT"
        },
        "version": "1.0.0"
    },
    "host": "localhost:8080",
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "consumes": ["application/json"],
    "produces": ["application/json"],
    "paths": {
        "/quotes": {
            "post": {
                "tags": ["Quotes"],
                "summary": "Create a quote",
                "description": "Runs underwriting and, when approved, prices the trip. The quote is valid for 14 days.",
                "operationId": "createQuote",
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/QuoteInput"}
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Quote created (may be declined or referred)",
                        "schema": {"$ref": "#/definitions/Quote"}
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {"$ref": "#/definitions/ProblemDetails"}
                    },
                    "404": {
                        "description": "Referenced country, coverage level or risk not found",
                        "schema": {"$ref": "#/definitions/ProblemDetails"}
                    },
                    "500": {
                        "description": "Internal server error",
                        "schema": {"$ref": "#/definitions/ProblemDetails"}
                    }
                }
            }
        },
        "/quotes/{quote_id}": {
            "get": {
                "tags": ["Quotes"],
                "summary": "Get a quote by ID",
                "operationId": "getQuote",
                "parameters": [
                    {
                        "name": "quote_id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Successful response",
                        "schema": {"$ref": "#/definitions/Quote"}
                    },
                    "404": {
                        "description": "Quote not found",
                        "schema": {"$ref": "#/definitions/ProblemDetails"}
                    }
                }
            }
        },
        "/underwriting/evaluate": {
            "post": {
                "tags": ["Underwriting"],
                "summary": "Evaluate eligibility",
                "description": "Runs the underwriting rules against a request without pricing or persisting anything",
                "operationId": "evaluateUnderwriting",
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/QuoteInput"}
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Aggregated decision with per-rule results",
                        "schema": {"$ref": "#/definitions/UnderwritingResult"}
                    },
                    "400": {
                        "description": "Invalid request",
                        "schema": {"$ref": "#/definitions/ProblemDetails"}
                    }
                }
            }
        },
        "/reference/countries/{iso_code}": {
            "get": {
                "tags": ["Reference"],
                "summary": "Get a country",
                "operationId": "getCountry",
                "parameters": [
                    {
                        "name": "iso_code",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "ISO country code (e.g., ES)"
                    },
                    {
                        "name": "as_of",
                        "in": "query",
                        "type": "string",
                        "description": "Effective date YYYY-MM-DD (defaults to today)"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Successful response",
                        "schema": {"$ref": "#/definitions/Country"}
                    },
                    "404": {
                        "description": "No record active at the given date",
                        "schema": {"$ref": "#/definitions/ProblemDetails"}
                    }
                }
            }
        },
        "/reference/coverage-levels/{code}": {
            "get": {
                "tags": ["Reference"],
                "summary": "Get a medical coverage level",
                "operationId": "getCoverageLevel",
                "parameters": [
                    {
                        "name": "code",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "as_of",
                        "in": "query",
                        "type": "string",
                        "description": "Effective date YYYY-MM-DD (defaults to today)"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Successful response",
                        "schema": {"$ref": "#/definitions/CoverageLevel"}
                    },
                    "404": {
                        "description": "No record active at the given date",
                        "schema": {"$ref": "#/definitions/ProblemDetails"}
                    }
                }
            }
        },
        "/reference/risk-types/{code}": {
            "get": {
                "tags": ["Reference"],
                "summary": "Get a risk type",
                "operationId": "getRiskType",
                "parameters": [
                    {
                        "name": "code",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "as_of",
                        "in": "query",
                        "type": "string",
                        "description": "Effective date YYYY-MM-DD (defaults to today)"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Successful response",
                        "schema": {"$ref": "#/definitions/RiskType"}
                    },
                    "404": {
                        "description": "No record active at the given date",
                        "schema": {"$ref": "#/definitions/ProblemDetails"}
                    }
                }
            }
        },
        "/reference/bundles": {
            "get": {
                "tags": ["Reference"],
                "summary": "List active risk bundles",
                "operationId": "listBundles",
                "parameters": [
                    {
                        "name": "as_of",
                        "in": "query",
                        "type": "string",
                        "description": "Effective date YYYY-MM-DD (defaults to today)"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Successful response",
                        "schema": {
                            "type": "array",
                            "items": {"$ref": "#/definitions/RiskBundle"}
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "QuoteInput": {
            "type": "object",
            "required": ["birth_date", "date_from", "date_to", "country_iso", "coverage_level_code"],
            "properties": {
                "birth_date": {"type": "string", "example": "1990-04-12"},
                "date_from": {"type": "string", "example": "2026-06-01"},
                "date_to": {"type": "string", "example": "2026-06-08"},
                "country_iso": {"type": "string", "example": "ES"},
                "coverage_level_code": {"type": "string", "example": "BASIC"},
                "risk_codes": {"type": "array", "items": {"type": "string"}, "example": ["SPORT_ACTIVITIES"]},
                "use_country_default": {"type": "boolean"},
                "promo_code": {"type": "string", "example": "WELCOME10"},
                "age_coefficient_override": {"type": "boolean"}
            }
        },
        "Quote": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "underwriting": {"$ref": "#/definitions/UnderwritingResult"},
                "premium": {"$ref": "#/definitions/PremiumResult"},
                "promo_code": {"type": "string"},
                "promo_discount": {"type": "number"},
                "total_price": {"type": "number"},
                "status": {"type": "string", "enum": ["priced", "referred", "declined", "expired"]},
                "created_at": {"type": "string", "format": "date-time"},
                "expires_at": {"type": "string", "format": "date-time"}
            }
        },
        "PremiumResult": {
            "type": "object",
            "properties": {
                "mode": {"type": "string", "enum": ["MEDICAL_LEVEL", "COUNTRY_DEFAULT"]},
                "base_premium": {"type": "number"},
                "bundle_discount": {"type": "number"},
                "final_premium": {"type": "number"},
                "currency": {"type": "string"},
                "payout_limit": {"type": "number"},
                "payout_limit_applied": {"type": "boolean"}
            }
        },
        "UnderwritingResult": {
            "type": "object",
            "properties": {
                "decision": {"type": "string", "enum": ["APPROVED", "REQUIRES_REVIEW", "DECLINED"]},
                "severity": {"type": "string"},
                "reasons": {"type": "string"},
                "rule_results": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/RuleResult"}
                }
            }
        },
        "RuleResult": {
            "type": "object",
            "properties": {
                "rule": {"type": "string", "example": "APPLICANT_AGE"},
                "severity": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "Country": {
            "type": "object",
            "properties": {
                "iso_code": {"type": "string"},
                "name": {"type": "string"},
                "risk_coefficient": {"type": "number"},
                "risk_group": {"type": "string", "enum": ["LOW", "MEDIUM", "HIGH", "VERY_HIGH"]}
            }
        },
        "CoverageLevel": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "daily_rate": {"type": "number"},
                "coverage_amount": {"type": "number"},
                "currency": {"type": "string"},
                "max_payout_amount": {"type": "number"}
            }
        },
        "RiskType": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "name": {"type": "string"},
                "coefficient": {"type": "number"},
                "is_mandatory": {"type": "boolean"}
            }
        },
        "RiskBundle": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "name": {"type": "string"},
                "required_risk_codes": {"type": "array", "items": {"type": "string"}},
                "discount_percentage": {"type": "number"}
            }
        },
        "ProblemDetails": {
            "type": "object",
            "description": "RFC 7807 Problem Details",
            "properties": {
                "type": {"type": "string", "example": "about:blank"},
                "title": {"type": "string", "example": "Not Found"},
                "status": {"type": "integer", "example": 404},
                "detail": {"type": "string", "example": "Resource not found"}
            }
        }
    },
    "tags": [
        {"name": "Quotes", "description": "Price travel-insurance requests"},
        {"name": "Underwriting", "description": "Eligibility evaluation"},
        {"name": "Reference", "description": "Temporally-versioned reference data"}
    ]
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "TravelCover API",
	Description:      "Travel insurance pricing and underwriting API",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
