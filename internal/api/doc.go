// Package api implements the HTTP REST API and WebSocket server for MixLogic.
//
// This package provides:
//   - REST endpoints for the live session, decisions, feedback and training
//   - Compatibility scoring and next-track suggestions over the track library
//   - WebSocket hub broadcasting training status and session snapshots
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - TLS support for venue deployments
//
// # Architecture
//
// The API server sits between the operator console and the core engine.
// Deck, mixer and crowd updates flow into the session monitor; decision and
// feedback endpoints drive the training manager; execution goes out to the
// control surface through the automation executor.
//
// # Graceful Degradation
//
// The server operates without a control surface or track library. Reads,
// decisions and feedback keep working; execution and library endpoints
// answer 503.
package api
