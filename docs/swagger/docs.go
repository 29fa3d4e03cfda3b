// Package swagger registers the OpenAPI document served at /swagger.
// The document is maintained by hand; keep it in step with the route
// annotations in internal/fulfillment/infrastructure/http.go.
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support",
            "email": "support@example.com"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/orders": {
            "post": {"tags": ["orders"], "summary": "Create an order", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"201": {"description": "Order created"}, "400": {"description": "Validation error"}, "404": {"description": "Restaurant or product not found"}, "422": {"description": "Business rule violation or currency mismatch"}}}
        },
        "/api/v1/orders/{id}": {
            "get": {"tags": ["orders"], "summary": "Get an order", "produces": ["application/json"], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Order not found"}}}
        },
        "/api/v1/orders/{id}/history": {
            "get": {"tags": ["orders"], "summary": "Get order status history", "produces": ["application/json"], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Order not found"}}}
        },
        "/api/v1/orders/{id}/status": {
            "patch": {"tags": ["orders"], "summary": "Transition order status", "consumes": ["application/json"], "produces": ["application/json"], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Order not found"}, "409": {"description": "Invalid transition or concurrent update"}}}
        },
        "/api/v1/orders/{id}/payment": {
            "patch": {"tags": ["orders"], "summary": "Update payment status", "consumes": ["application/json"], "produces": ["application/json"], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Payment status is final"}}}
        },
        "/api/v1/orders/{id}/eta": {
            "patch": {"tags": ["orders"], "summary": "Set estimated delivery time", "consumes": ["application/json"], "produces": ["application/json"], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Order is terminal"}}}
        },
        "/api/v1/orders/{id}/items": {
            "post": {"tags": ["orders"], "summary": "Add an order item", "consumes": ["application/json"], "produces": ["application/json"], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Order is not editable"}}}
        },
        "/api/v1/orders/{id}/items/{productId}": {
            "patch": {"tags": ["orders"], "summary": "Update an order item quantity", "consumes": ["application/json"], "produces": ["application/json"], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "productId", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["orders"], "summary": "Remove an order item", "produces": ["application/json"], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "productId", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "422": {"description": "Order would become empty"}}}
        },
        "/api/v1/customers/{id}/orders": {
            "get": {"tags": ["orders"], "summary": "List a customer's orders", "produces": ["application/json"], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "status", "in": "query"}, {"type": "integer", "name": "page", "in": "query"}, {"type": "integer", "name": "limit", "in": "query"}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/reviews": {
            "post": {"tags": ["reviews"], "summary": "Review a delivered order", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"201": {"description": "Created"}, "403": {"description": "Reviewer does not own the order"}, "422": {"description": "Order not delivered or already reviewed"}}}
        },
        "/api/v1/reviews/{id}": {
            "delete": {"tags": ["reviews"], "summary": "Delete a review", "produces": ["application/json"], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "customer_id", "in": "query", "required": true}], "responses": {"200": {"description": "OK"}, "403": {"description": "Reviewer does not own the review"}, "404": {"description": "Review not found"}}}
        },
        "/api/v1/restaurants": {
            "post": {"tags": ["restaurants"], "summary": "Create or update a restaurant", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"201": {"description": "Created"}, "400": {"description": "Validation error"}}}
        },
        "/api/v1/restaurants/nearby": {
            "get": {"tags": ["restaurants"], "summary": "Find nearby restaurants", "produces": ["application/json"], "parameters": [{"type": "number", "name": "lat", "in": "query", "required": true}, {"type": "number", "name": "lng", "in": "query", "required": true}, {"type": "number", "name": "radius_km", "in": "query"}, {"type": "string", "name": "categories", "in": "query"}, {"type": "number", "name": "min_rating", "in": "query"}, {"type": "string", "name": "sort", "in": "query"}, {"type": "integer", "name": "page", "in": "query"}, {"type": "integer", "name": "limit", "in": "query"}], "responses": {"200": {"description": "OK"}, "400": {"description": "Validation error"}}}
        },
        "/api/v1/restaurants/{id}": {
            "get": {"tags": ["restaurants"], "summary": "Get a restaurant", "produces": ["application/json"], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Restaurant not found"}}},
            "put": {"tags": ["restaurants"], "summary": "Create or update a restaurant", "consumes": ["application/json"], "produces": ["application/json"], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Validation error"}}}
        },
        "/api/v1/restaurants/{id}/orders": {
            "get": {"tags": ["restaurants"], "summary": "List a restaurant's orders with revenue statistics", "produces": ["application/json"], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "status", "in": "query"}, {"type": "integer", "name": "page", "in": "query"}, {"type": "integer", "name": "limit", "in": "query"}], "responses": {"200": {"description": "OK"}, "400": {"description": "Validation error"}, "404": {"description": "Restaurant not found"}, "422": {"description": "Delivered orders mix currencies"}}}
        },
        "/api/v1/restaurants/{id}/ratings": {
            "get": {"tags": ["restaurants"], "summary": "Restaurant rating statistics", "produces": ["application/json"], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Restaurant not found"}}}
        },
        "/api/v1/products": {
            "post": {"tags": ["products"], "summary": "Create or update a product", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"201": {"description": "Created"}, "404": {"description": "Restaurant not found"}}}
        },
        "/api/v1/products/{id}": {
            "put": {"tags": ["products"], "summary": "Create or update a product", "consumes": ["application/json"], "produces": ["application/json"], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Restaurant not found"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Marketplace Fulfillment API",
	Description:      "Order fulfillment, ratings and restaurant discovery for the food marketplace",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
