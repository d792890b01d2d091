// Package handlers contains the reusable pieces of the REST server.
//
// # Health Checks
//
// Required checks (the curriculum store) decide readiness; optional checks
// (the report cache) only mark the service as degraded:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("store", handlers.PingCheck(repo))
//	checker.AddOptionalCheck("report_cache", handlers.PingCheck(cache))
//
// # Authentication
//
// API keys are never stored in clear. Operators put bcrypt hashes in
// API_KEY_HASHES and clients send the key in X-API-Key or as a Bearer token:
//
//	hash, _ := handlers.HashAPIKey("s3cret", 0)
//	auth := handlers.NewAPIKeyAuth(handlers.APIKeyHeader, []string{hash})
//	protected := auth.Middleware(deny)(mux)
//
// # Grade Webhook
//
// ParseGradeWebhook validates the payload sent by the grade entry system and
// Targets folds it into distinct cache evictions.
package handlers
