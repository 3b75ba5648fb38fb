// Package routes wires HTTP paths to controllers.
//
//   - api.go: /v1 API and health probes
//   - web.go: banner and /docs
//   - middleware.go: request id
package routes
