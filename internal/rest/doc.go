// Copyright (c) 2026 Jeremy Hahn
// Copyright (c) 2026 Automate The Things, LLC
//
// This file is part of go-nsm.
//
// go-nsm is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package rest provides the HTTP REST API for the simulated security
// module. It exposes session lifecycle, measurement register, certificate
// slot, random, and attestation operations over JSON.
//
// # Server Setup
//
//	registry := rest.NewRegistry(nil, 64)
//	server, err := rest.NewServer(&rest.Config{
//		Port:     8676,
//		Registry: registry,
//		Logger:   logging.NewLogger(false),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	go server.Start()
//	defer server.Stop(context.Background())
//
// # API Endpoints
//
// Session lifecycle:
//
//	POST   /api/v1/sessions                          - Open a device session
//	GET    /api/v1/sessions                          - List open sessions
//	GET    /api/v1/sessions/{id}                     - Describe a session
//	DELETE /api/v1/sessions/{id}                     - Close a session
//
// Device operations (all scoped to a session):
//
//	POST   /api/v1/sessions/{id}/random              - Draw random bytes
//	GET    /api/v1/sessions/{id}/digest              - Aggregate measurement digest
//	POST   /api/v1/sessions/{id}/attestation         - Build an attestation document
//
// Measurement registers:
//
//	GET    /api/v1/sessions/{id}/pcrs                - Snapshot all registers
//	GET    /api/v1/sessions/{id}/pcrs/{slot}         - Read one register
//	POST   /api/v1/sessions/{id}/pcrs/{slot}         - Extend one register
//	POST   /api/v1/sessions/{id}/pcrs/{slot}/lock    - Lock one register
//	POST   /api/v1/sessions/{id}/pcrs/lock           - Lock registers below a bound
//	GET    /api/v1/sessions/{id}/pcrs/locked         - Report lock state
//
// Certificate slots:
//
//	GET    /api/v1/sessions/{id}/certificates        - List occupied slots
//	GET    /api/v1/sessions/{id}/certificates/{slot} - Read a slot
//	PUT    /api/v1/sessions/{id}/certificates/{slot} - Store into a slot
//	DELETE /api/v1/sessions/{id}/certificates/{slot} - Clear a slot
//
// Health and metrics:
//
//	GET /health          - Basic health check
//	GET /health/live     - Liveness probe
//	GET /health/ready    - Readiness probe
//	GET /health/startup  - Startup probe
//	GET /metrics         - Prometheus scrape endpoint (when enabled)
//
// # Request/Response Format
//
// Binary request fields are standard JSON base64; digest and register
// values in responses are hex strings. Extending a register:
//
//	POST /api/v1/sessions/4af9.../pcrs/0
//	{"data": "aGVsbG8="}
//
//	{
//		"index": 0,
//		"value": "43e6b4...",
//		"locked": false
//	}
//
// # Error Handling
//
// Errors map to HTTP status codes:
//
//   - 400 Bad Request: malformed body, invalid slot or length
//   - 404 Not Found: unknown session, empty certificate slot
//   - 409 Conflict: register is locked
//   - 410 Gone: session has been closed
//   - 503 Service Unavailable: session limit reached
//   - 507 Insufficient Storage: certificate budget exhausted
//   - 500 Internal Server Error: unexpected failures
//
// Error responses carry the device error kind when one applies, so
// clients can recover the original error:
//
//	{
//		"error": "nsm: pcr slot is locked",
//		"code": 409,
//		"device_code": "locked"
//	}
//
// # Middleware
//
// The server applies panic recovery, correlation ID propagation, request
// logging, Prometheus instrumentation, and CORS to every route.
//
// # Security Considerations
//
// The device behind this API is a simulator. Its measurements and
// attestation documents carry no hardware root of trust and must not be
// used to gate trust decisions in production.
package rest
