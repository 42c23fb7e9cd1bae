package handlers

import (
	"encoding/json"
	"net/http"
)

type object = map[string]interface{}

func jsonResponse(description, schemaRef string) object {
	return object{
		"description": description,
		"content": object{
			"application/json": object{
				"schema": object{"$ref": "#/components/schemas/" + schemaRef},
			},
		},
	}
}

func getOperation(summary, description, schemaRef string, params ...object) object {
	op := object{
		"summary":     summary,
		"description": description,
		"responses": object{
			"200": jsonResponse("Successful response", schemaRef),
			"503": jsonResponse("Model not built yet", "ErrorResponse"),
		},
	}
	if len(params) > 0 {
		op["parameters"] = params
	}
	return op
}

func queryParam(name, description string, schema object) object {
	return object{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    false,
		"schema":      schema,
	}
}

// OpenAPISpec returns the OpenAPI 3.0 document of the inspection API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	doc := object{
		"openapi": "3.0.0",
		"info": object{
			"title":       "Hydro Model Inspection API",
			"description": "Read-only access to the hydro network model built from the source tables: routing graph, catalogs, block aggregates and build diagnostics",
			"version":     "0.1.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": object{
			"/api/v1/metadata": object{
				"get": getOperation("Model metadata", "Version, build ID and summary counts of the served model", "Metadata"),
			},
			"/api/v1/calendar": object{
				"get": getOperation("Calendar keys", "Sorted distinct stages and blocks", "CalendarKeys"),
			},
			"/api/v1/graph/arcs": object{
				"get": getOperation("Routing graph arcs", "Arcs of one list, or of every list when list is omitted", "ArcList",
					queryParam("list", "Arc list tag", object{
						"type": "string",
						"enum": []string{"spill_res", "turb_res", "spill_to_hg", "turb_to_hg", "natural"},
					}),
				),
			},
			"/api/v1/aggregates/{kind}": object{
				"get": getOperation("Block aggregates", "Volumes in hm3 per (name, stage, block), sorted by name then time index", "PaginatedEntries",
					object{
						"name":     "kind",
						"in":       "path",
						"required": true,
						"schema": object{
							"type": "string",
							"enum": []string{"natural_reservoir", "natural_hydro_group", "irrigation"},
						},
					},
					queryParam("name", "Restrict to one node name", object{"type": "string"}),
					queryParam("page", "Page number (default: 1)", object{"type": "integer", "default": 1}),
					queryParam("limit", "Entries per page (default: 100, max: 1000)", object{"type": "integer", "default": 100}),
				),
			},
			"/api/v1/catalogs": object{
				"get": getOperation("Catalogs", "Reservoir and generator catalogs with hydro-group setpoint limits", "Catalogs"),
			},
			"/api/v1/routing": object{
				"get": getOperation("Inflow routing", "Inflow node to reservoir and hydro-group maps", "Routing"),
			},
			"/api/v1/report": object{
				"get": getOperation("Build report", "Diagnostics of the served build", "BuildReport"),
			},
			"/api/v1/rebuild": object{
				"post": object{
					"summary":     "Rebuild the model",
					"description": "Reloads the sources and swaps in the new model when the build succeeds",
					"responses": object{
						"200": jsonResponse("Build report", "BuildReport"),
						"422": jsonResponse("Build failed, previous model kept", "ErrorResponse"),
					},
				},
			},
			"/health": object{
				"get": object{
					"summary": "Health check",
					"responses": object{
						"200": object{"description": "Service healthy"},
						"503": object{"description": "Source backend unavailable"},
					},
				},
			},
			"/metrics": object{
				"get": object{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": object{
						"200": object{
							"description": "Prometheus metrics in text format",
							"content": object{
								"text/plain": object{
									"schema": map[string]string{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
		"components": object{
			"schemas": object{
				"Metadata": object{
					"type":                 "object",
					"additionalProperties": object{"type": "string"},
				},
				"CalendarKeys": object{
					"type": "object",
					"properties": object{
						"stages": object{"type": "array", "items": object{"type": "integer"}},
						"blocks": object{"type": "array", "items": object{"type": "integer"}},
					},
				},
				"ArcList": object{
					"type": "array",
					"items": object{
						"type": "object",
						"properties": object{
							"list":        object{"type": "string"},
							"origin":      object{"type": "string"},
							"destination": object{"type": "string"},
							"limits":      object{"type": "object", "nullable": true},
						},
					},
				},
				"PaginatedEntries": object{
					"type": "object",
					"properties": object{
						"data": object{
							"type": "array",
							"items": object{
								"type": "object",
								"properties": object{
									"name":       object{"type": "string"},
									"stage":      object{"type": "integer"},
									"block":      object{"type": "integer"},
									"volume_hm3": object{"type": "number"},
								},
							},
						},
						"total":       object{"type": "integer"},
						"page":        object{"type": "integer"},
						"limit":       object{"type": "integer"},
						"total_pages": object{"type": "integer"},
					},
				},
				"Catalogs":    object{"type": "object"},
				"Routing":     object{"type": "object"},
				"BuildReport": object{"type": "object"},
				"ErrorResponse": object{
					"type": "object",
					"properties": object{
						"error":   object{"type": "string"},
						"message": object{"type": "string"},
						"code":    object{"type": "integer"},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}
