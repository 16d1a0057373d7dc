package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "OBE Attainment API",
        "description": "Scores assessments against graduate attributes, course outcomes and program outcomes.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {
            "name": "Outcomes",
            "description": "GA, CO and PO catalog"
        },
        {
            "name": "Assessments",
            "description": "Assessments and outcome mappings"
        },
        {
            "name": "Records",
            "description": "Mark submission and scoring"
        },
        {
            "name": "Reports",
            "description": "Student and cohort attainment"
        },
        {
            "name": "Observability",
            "description": "Service counters"
        }
    ],
    "paths": {
        "/outcomes": {
            "get": {
                "tags": [
                    "Outcomes"
                ],
                "summary": "List outcome definitions",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "query",
                        "name": "kind",
                        "type": "string",
                        "description": "GA, CO or PO"
                    },
                    {
                        "in": "query",
                        "name": "code",
                        "type": "array",
                        "items": {
                            "type": "string"
                        },
                        "collectionFormat": "csv"
                    }
                ]
            },
            "put": {
                "tags": [
                    "Outcomes"
                ],
                "summary": "Create or replace an outcome definition",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "body",
                        "name": "payload",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/UpsertOutcomeRequest"
                        }
                    }
                ]
            }
        },
        "/outcomes/{code}": {
            "get": {
                "tags": [
                    "Outcomes"
                ],
                "summary": "Get outcome definition",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "code",
                        "type": "string",
                        "required": true
                    }
                ]
            }
        },
        "/assessments": {
            "post": {
                "tags": [
                    "Assessments"
                ],
                "summary": "Create assessment",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "422": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "body",
                        "name": "payload",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CreateAssessmentRequest"
                        }
                    }
                ]
            }
        },
        "/assessments/{id}": {
            "get": {
                "tags": [
                    "Assessments"
                ],
                "summary": "Get assessment",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "type": "string",
                        "required": true
                    }
                ]
            }
        },
        "/assessments/{id}/mappings": {
            "get": {
                "tags": [
                    "Assessments"
                ],
                "summary": "Get assessment outcome mappings",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "type": "string",
                        "required": true
                    }
                ]
            },
            "put": {
                "tags": [
                    "Assessments"
                ],
                "summary": "Replace assessment outcome mappings and schedule a rescore",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "202": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "422": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "type": "string",
                        "required": true
                    },
                    {
                        "in": "body",
                        "name": "payload",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/UpdateMappingsRequest"
                        }
                    }
                ]
            }
        },
        "/assessments/{id}/end-term-grid": {
            "get": {
                "tags": [
                    "Assessments"
                ],
                "summary": "Initialise an End-Term answer grid",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "type": "string",
                        "required": true
                    }
                ]
            }
        },
        "/courses/{courseId}/assessments": {
            "get": {
                "tags": [
                    "Assessments"
                ],
                "summary": "List assessments of a course",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "courseId",
                        "type": "string",
                        "required": true
                    }
                ]
            }
        },
        "/records": {
            "get": {
                "tags": [
                    "Records"
                ],
                "summary": "List student assessment records",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "query",
                        "name": "courseId",
                        "type": "string"
                    },
                    {
                        "in": "query",
                        "name": "studentId",
                        "type": "array",
                        "items": {
                            "type": "string"
                        },
                        "collectionFormat": "csv"
                    },
                    {
                        "in": "query",
                        "name": "assessmentId",
                        "type": "array",
                        "items": {
                            "type": "string"
                        },
                        "collectionFormat": "csv"
                    }
                ]
            },
            "post": {
                "tags": [
                    "Records"
                ],
                "summary": "Submit marks for a non End-Term assessment",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "412": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "422": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "429": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "body",
                        "name": "payload",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/SubmitMarksRequest"
                        }
                    }
                ]
            }
        },
        "/records/end-term": {
            "post": {
                "tags": [
                    "Records"
                ],
                "summary": "Submit an End-Term answer grid",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "412": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "422": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "429": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "body",
                        "name": "payload",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/SubmitEndTermRequest"
                        }
                    }
                ]
            }
        },
        "/records/bulk": {
            "post": {
                "tags": [
                    "Records"
                ],
                "summary": "Bulk submit marks for one assessment",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "422": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "429": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "body",
                        "name": "payload",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/BulkSubmitRequest"
                        }
                    }
                ]
            }
        },
        "/reports/students/{studentId}": {
            "get": {
                "tags": [
                    "Reports"
                ],
                "summary": "Student attainment per outcome",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "studentId",
                        "type": "string",
                        "required": true
                    },
                    {
                        "in": "query",
                        "name": "courseId",
                        "type": "string"
                    },
                    {
                        "in": "query",
                        "name": "assessmentId",
                        "type": "array",
                        "items": {
                            "type": "string"
                        },
                        "collectionFormat": "csv"
                    }
                ]
            }
        },
        "/reports/cohort": {
            "get": {
                "tags": [
                    "Reports"
                ],
                "summary": "Cohort attainment summary per outcome",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "query",
                        "name": "courseId",
                        "type": "string"
                    },
                    {
                        "in": "query",
                        "name": "studentId",
                        "type": "array",
                        "items": {
                            "type": "string"
                        },
                        "collectionFormat": "csv"
                    },
                    {
                        "in": "query",
                        "name": "assessmentId",
                        "type": "array",
                        "items": {
                            "type": "string"
                        },
                        "collectionFormat": "csv"
                    },
                    {
                        "in": "query",
                        "name": "students",
                        "type": "boolean",
                        "description": "Include per-student reports"
                    }
                ]
            }
        },
        "/reports/cohort/export": {
            "get": {
                "tags": [
                    "Reports"
                ],
                "summary": "Export cohort attainment as CSV or PDF",
                "produces": [
                    "text/csv",
                    "application/pdf"
                ],
                "parameters": [
                    {
                        "in": "query",
                        "name": "courseId",
                        "type": "string"
                    },
                    {
                        "in": "query",
                        "name": "studentId",
                        "type": "array",
                        "items": {
                            "type": "string"
                        },
                        "collectionFormat": "csv"
                    },
                    {
                        "in": "query",
                        "name": "assessmentId",
                        "type": "array",
                        "items": {
                            "type": "string"
                        },
                        "collectionFormat": "csv"
                    },
                    {
                        "in": "query",
                        "name": "format",
                        "type": "string",
                        "description": "csv (default) or pdf"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "File",
                        "schema": {
                            "type": "file"
                        }
                    },
                    "404": {
                        "description": "Exports disabled"
                    }
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": [
                    "Observability"
                ],
                "summary": "Service counters snapshot",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "Band": {
            "type": "object",
            "properties": {
                "level": {
                    "type": "string",
                    "enum": [
                        "Introductory",
                        "Intermediate",
                        "Advanced"
                    ]
                },
                "min": {
                    "type": "number"
                },
                "max": {
                    "type": "number"
                }
            }
        },
        "UpsertOutcomeRequest": {
            "type": "object",
            "required": [
                "code",
                "name",
                "kind"
            ],
            "properties": {
                "code": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "kind": {
                    "type": "string",
                    "enum": [
                        "GA",
                        "CO",
                        "PO"
                    ]
                },
                "bands": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/Band"
                    }
                }
            }
        },
        "OutcomeMapping": {
            "type": "object",
            "properties": {
                "outcome_code": {
                    "type": "string"
                },
                "outcome_name": {
                    "type": "string"
                },
                "weightage": {
                    "type": "number"
                }
            }
        },
        "CreateAssessmentRequest": {
            "type": "object",
            "required": [
                "course_id",
                "title",
                "type"
            ],
            "properties": {
                "course_id": {
                    "type": "string"
                },
                "title": {
                    "type": "string"
                },
                "type": {
                    "type": "string"
                },
                "max_marks": {
                    "type": "number"
                },
                "weightage": {
                    "type": "number"
                },
                "ga_mappings": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/OutcomeMapping"
                    }
                },
                "co_mappings": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/OutcomeMapping"
                    }
                },
                "po_mappings": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/OutcomeMapping"
                    }
                }
            }
        },
        "UpdateMappingsRequest": {
            "type": "object",
            "properties": {
                "ga_mappings": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/OutcomeMapping"
                    }
                },
                "co_mappings": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/OutcomeMapping"
                    }
                },
                "po_mappings": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/OutcomeMapping"
                    }
                }
            }
        },
        "QuestionSlot": {
            "type": "object",
            "properties": {
                "mark": {
                    "type": "number"
                },
                "co_tags": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            }
        },
        "SubmitMarksRequest": {
            "type": "object",
            "required": [
                "student_id",
                "assessment_id",
                "marks_obtained"
            ],
            "properties": {
                "student_id": {
                    "type": "string"
                },
                "assessment_id": {
                    "type": "string"
                },
                "marks_obtained": {
                    "type": "number"
                }
            }
        },
        "SubmitEndTermRequest": {
            "type": "object",
            "required": [
                "student_id",
                "assessment_id",
                "slots"
            ],
            "properties": {
                "student_id": {
                    "type": "string"
                },
                "assessment_id": {
                    "type": "string"
                },
                "slots": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/QuestionSlot"
                    }
                }
            }
        },
        "BulkSubmitItem": {
            "type": "object",
            "required": [
                "student_id"
            ],
            "properties": {
                "student_id": {
                    "type": "string"
                },
                "marks_obtained": {
                    "type": "number"
                },
                "slots": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/QuestionSlot"
                    }
                }
            }
        },
        "BulkSubmitRequest": {
            "type": "object",
            "required": [
                "assessment_id",
                "items"
            ],
            "properties": {
                "assessment_id": {
                    "type": "string"
                },
                "mode": {
                    "type": "string",
                    "enum": [
                        "atomic",
                        "partialOnError"
                    ]
                },
                "items": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/BulkSubmitItem"
                    }
                }
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "status": {
                    "type": "integer"
                },
                "details": {
                    "type": "object"
                }
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object"
                },
                "error": {
                    "$ref": "#/definitions/APIError"
                },
                "meta": {
                    "type": "object"
                }
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
