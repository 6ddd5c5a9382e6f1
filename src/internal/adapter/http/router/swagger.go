package router

import (
	"fmt"
	"net/http"
)

func registerSwaggerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/", http.StatusMovedPermanently)
	})

	mux.HandleFunc("GET /swagger/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, swaggerHTML, "/swagger/openapi.json")
	})

	mux.HandleFunc("GET /swagger/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(openAPI))
	})
}

const swaggerHTML = `<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Stock Trading Simulator API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.onload = function() {
      window.ui = SwaggerUIBundle({
        url: "%s",
        dom_id: "#swagger-ui"
      });
    };
  </script>
</body>
</html>`

const openAPI = `{
  "openapi": "3.0.3",
  "info": {
    "title": "Stock Trading Simulator API",
    "version": "1.0.0"
  },
  "paths": {
    "/api/register": {
      "post": {
        "summary": "Register a trading account",
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["username", "email", "password"],
                "properties": {
                  "username": {"type": "string", "minLength": 3, "maxLength": 32},
                  "email": {"type": "string", "format": "email"},
                  "password": {"type": "string", "minLength": 8, "maxLength": 72}
                }
              }
            }
          }
        },
        "responses": {
          "201": {"description": "Account registered"},
          "400": {"description": "Validation error"},
          "409": {"description": "Username or email already registered"},
          "503": {"description": "Storage unavailable, retry"}
        }
      }
    },
    "/api/login": {
      "post": {
        "summary": "Log in and open a session",
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["username", "password"],
                "properties": {
                  "username": {"type": "string"},
                  "password": {"type": "string"}
                }
              }
            }
          }
        },
        "responses": {
          "200": {"description": "Session opened, token returned and set as cookie"},
          "400": {"description": "Validation error"},
          "401": {"description": "Invalid credentials"}
        }
      }
    },
    "/api/logout": {
      "post": {
        "summary": "Close the current session",
        "security": [{"SessionToken": []}],
        "responses": {
          "200": {"description": "Logged out"},
          "401": {"description": "Unauthorized"}
        }
      }
    },
    "/api/me": {
      "get": {
        "summary": "Current account",
        "security": [{"SessionToken": []}],
        "responses": {
          "200": {"description": "Account fetched"},
          "401": {"description": "Unauthorized"}
        }
      }
    },
    "/api/quotes": {
      "get": {
        "summary": "Quotes for the watchlist",
        "responses": {
          "200": {"description": "Quotes fetched; stale quotes are flagged and unpriced symbols listed in missing"},
          "503": {"description": "Quote provider unavailable, retry"}
        }
      }
    },
    "/api/quotes/{symbol}": {
      "get": {
        "summary": "Quote for one symbol",
        "parameters": [
          {"name": "symbol", "in": "path", "required": true, "schema": {"type": "string", "pattern": "^[A-Za-z0-9.\\-]{1,12}$"}}
        ],
        "responses": {
          "200": {"description": "Quote fetched"},
          "400": {"description": "Invalid symbol"},
          "404": {"description": "Unknown symbol"},
          "503": {"description": "Quote provider unavailable, retry"}
        }
      }
    },
    "/api/trades/buy": {
      "post": {
        "summary": "Buy shares at the current quote",
        "security": [{"SessionToken": []}],
        "requestBody": {"$ref": "#/components/requestBodies/Trade"},
        "responses": {
          "200": {"description": "Trade settled"},
          "400": {"description": "Validation error"},
          "404": {"description": "Unknown symbol"},
          "422": {"description": "Insufficient funds"},
          "503": {"description": "Account busy or quote unavailable, retry"}
        }
      }
    },
    "/api/trades/sell": {
      "post": {
        "summary": "Sell shares at the current quote",
        "security": [{"SessionToken": []}],
        "requestBody": {"$ref": "#/components/requestBodies/Trade"},
        "responses": {
          "200": {"description": "Trade settled"},
          "400": {"description": "Validation error"},
          "404": {"description": "No such holding"},
          "422": {"description": "Insufficient shares"},
          "503": {"description": "Account busy or quote unavailable, retry"}
        }
      }
    },
    "/api/transactions": {
      "get": {
        "summary": "Transaction history, newest first",
        "security": [{"SessionToken": []}],
        "parameters": [
          {"name": "limit", "in": "query", "required": false, "schema": {"type": "integer", "minimum": 1, "maximum": 500}}
        ],
        "responses": {
          "200": {"description": "Transactions fetched"},
          "400": {"description": "Invalid limit"},
          "401": {"description": "Unauthorized"}
        }
      }
    },
    "/api/portfolio": {
      "get": {
        "summary": "Cash balance and holdings",
        "security": [{"SessionToken": []}],
        "responses": {
          "200": {"description": "Portfolio fetched"},
          "401": {"description": "Unauthorized"}
        }
      }
    },
    "/api/portfolio/wealth": {
      "get": {
        "summary": "Cash plus market value of holdings",
        "security": [{"SessionToken": []}],
        "responses": {
          "200": {"description": "Wealth computed; degraded is true when any position used a fallback price"},
          "401": {"description": "Unauthorized"}
        }
      }
    },
    "/api/portfolio/reconciliation": {
      "get": {
        "summary": "Compare the stored balance with the transaction log",
        "security": [{"SessionToken": []}],
        "responses": {
          "200": {"description": "Reconciliation result"},
          "401": {"description": "Unauthorized"}
        }
      }
    },
    "/api/admin/prices/{symbol}/adjust": {
      "post": {
        "summary": "Move a simulated price by a percentage",
        "security": [{"SessionToken": []}],
        "parameters": [
          {"name": "symbol", "in": "path", "required": true, "schema": {"type": "string"}}
        ],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["percent"],
                "properties": {
                  "percent": {"type": "string", "example": "-2.5"}
                }
              }
            }
          }
        },
        "responses": {
          "200": {"description": "Price adjusted"},
          "400": {"description": "Validation error or provider cannot adjust prices"},
          "403": {"description": "Admin role required"},
          "404": {"description": "Unknown symbol"}
        }
      }
    },
    "/ws": {
      "get": {
        "summary": "Websocket stream of quote and portfolio events",
        "security": [{"SessionToken": []}],
        "responses": {
          "101": {"description": "Switching protocols"},
          "401": {"description": "Unauthorized"}
        }
      }
    },
    "/healthz": {
      "get": {
        "summary": "Liveness and storage check",
        "responses": {
          "200": {"description": "Healthy"},
          "503": {"description": "Storage unreachable"}
        }
      }
    }
  },
  "components": {
    "securitySchemes": {
      "SessionToken": {
        "type": "http",
        "scheme": "bearer"
      }
    },
    "requestBodies": {
      "Trade": {
        "required": true,
        "content": {
          "application/json": {
            "schema": {
              "type": "object",
              "required": ["symbol", "quantity"],
              "properties": {
                "symbol": {"type": "string"},
                "quantity": {"type": "integer", "minimum": 1}
              }
            }
          }
        }
      }
    }
  }
}`
