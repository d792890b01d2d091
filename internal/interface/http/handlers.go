package http

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/campus-hub/grade-engine/internal/application/command"
	"github.com/campus-hub/grade-engine/internal/application/query"
	"github.com/campus-hub/grade-engine/internal/domain/shared"
	"github.com/campus-hub/grade-engine/internal/interface/http/handlers"
	"github.com/campus-hub/grade-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"name":    "Grade Engine API",
		"version": s.config.Version,
		"endpoints": map[string]string{
			"health":              "/health",
			"enrollment_bulletin": "/api/v1/enrollments/{id}/bulletin",
			"student_bulletin":    "/api/v1/students/{id}/bulletin",
			"diagnostic":          "/api/v1/students/{id}/diagnostic",
			"simulation":          "/api/v1/students/{id}/simulation?target=15",
		},
	})
}

// handleHealth reports every dependency. Degraded still answers 200.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, r, http.StatusOK, map[string]any{
			"status":  "healthy",
			"uptime":  s.Uptime().Round(time.Second).String(),
			"version": s.config.Version,
		})
		return
	}

	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Healthy {
		writeJSON(w, r, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// REPORT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetBulletin handles GET /api/v1/enrollments/{id}/bulletin
func (s *Server) handleGetBulletin(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetBulletin == nil {
		writeNotConfigured(w, r, "Bulletin")
		return
	}

	result, err := s.deps.GetBulletin.Handle(r.Context(), query.GetBulletinQuery{
		EnrollmentID: r.PathValue("id"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result.Bulletin, reportMeta(result.FromCache, result.GeneratedAt))
}

// handleGetStudentBulletin handles GET /api/v1/students/{id}/bulletin
func (s *Server) handleGetStudentBulletin(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetStudentBulletin == nil {
		writeNotConfigured(w, r, "Bulletin")
		return
	}

	result, err := s.deps.GetStudentBulletin.Handle(r.Context(), query.GetStudentBulletinQuery{
		StudentID: r.PathValue("id"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result.Bulletin, reportMeta(result.FromCache, result.GeneratedAt))
}

// handleDiagnoseSkills handles GET /api/v1/students/{id}/diagnostic
func (s *Server) handleDiagnoseSkills(w http.ResponseWriter, r *http.Request) {
	if s.deps.DiagnoseSkills == nil {
		writeNotConfigured(w, r, "Diagnostic")
		return
	}

	result, err := s.deps.DiagnoseSkills.Handle(r.Context(), query.DiagnoseSkillsQuery{
		StudentID: r.PathValue("id"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result.Diagnostic, reportMeta(result.FromCache, result.GeneratedAt))
}

// handleSimulateTarget handles GET /api/v1/students/{id}/simulation?target=15
func (s *Server) handleSimulateTarget(w http.ResponseWriter, r *http.Request) {
	if s.deps.SimulateTarget == nil {
		writeNotConfigured(w, r, "Simulation")
		return
	}

	target, ok := parseTarget(r.URL.Query().Get("target"))
	if !ok {
		writeJSONErrorWithDetails(w, r, http.StatusBadRequest, "invalid_request",
			"target must be a number between 0 and 20", "target="+r.URL.Query().Get("target"))
		return
	}

	result, err := s.deps.SimulateTarget.Handle(r.Context(), query.SimulateTargetQuery{
		StudentID:     r.PathValue("id"),
		TargetAverage: target,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, reportMeta(false, result.GeneratedAt))
}

// parseTarget accepts an empty value (nil, default target) or a finite
// number. Commas are accepted as decimal separators ("12,5").
func parseTarget(raw string) (*float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, false
	}
	return &v, true
}

// ══════════════════════════════════════════════════════════════════════════════
// INVALIDATION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleInvalidateEnrollment handles POST /api/v1/enrollments/{id}/invalidate
func (s *Server) handleInvalidateEnrollment(w http.ResponseWriter, r *http.Request) {
	s.invalidate(w, r, command.InvalidateReportsCommand{
		EnrollmentID: r.PathValue("id"),
		Reason:       reasonFrom(r),
	})
}

// handleInvalidateStudent handles POST /api/v1/students/{id}/invalidate
func (s *Server) handleInvalidateStudent(w http.ResponseWriter, r *http.Request) {
	s.invalidate(w, r, command.InvalidateReportsCommand{
		StudentID: r.PathValue("id"),
		Reason:    reasonFrom(r),
	})
}

func (s *Server) invalidate(w http.ResponseWriter, r *http.Request, cmd command.InvalidateReportsCommand) {
	if s.deps.InvalidateReports == nil {
		writeNotConfigured(w, r, "Invalidation")
		return
	}

	result, err := s.deps.InvalidateReports.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

func reasonFrom(r *http.Request) string {
	if reason := r.URL.Query().Get("reason"); reason != "" {
		return reason
	}
	return "manual"
}

// handleGradeWebhook handles POST /webhook/grades
func (s *Server) handleGradeWebhook(w http.ResponseWriter, r *http.Request) {
	if s.deps.InvalidateReports == nil {
		writeNotConfigured(w, r, "Invalidation")
		return
	}

	payload, err := handlers.ParseGradeWebhook(r.Body)
	if err != nil {
		writeJSONErrorWithDetails(w, r, http.StatusBadRequest, "invalid_request", "Invalid webhook payload", err.Error())
		return
	}

	targets := payload.Targets()
	for _, t := range targets {
		_, err := s.deps.InvalidateReports.Handle(r.Context(), command.InvalidateReportsCommand{
			EnrollmentID: t.EnrollmentID,
			StudentID:    t.StudentID,
			Reason:       string(t.Reason),
		})
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
	}

	s.logger.Info("grade webhook processed",
		logger.String("delivery_id", payload.DeliveryID),
		logger.Int("events", len(payload.Events)),
		logger.Int("invalidations", len(targets)),
	)

	writeJSON(w, r, http.StatusAccepted, map[string]any{
		"delivery_id":   payload.DeliveryID,
		"events":        len(payload.Events),
		"invalidations": len(targets),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// statusFor maps a domain error kind to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case shared.IsCorruptData(err):
		return http.StatusInternalServerError, "internal_error"
	case shared.IsIncompleteProfile(err):
		return http.StatusUnprocessableEntity, "incomplete_profile"
	case shared.IsNoActiveEnrollment(err):
		return http.StatusNotFound, "no_active_enrollment"
	case shared.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case shared.IsValidation(err):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, shared.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case shared.IsRetryable(err):
		return http.StatusServiceUnavailable, "service_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeDomainError writes the error envelope; 5xx details stay in the logs.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)

	message := err.Error()
	var de *shared.DomainError
	if errors.As(err, &de) && de.Message != "" {
		message = de.Message
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
			logger.Err(err),
		)
		message = "The request could not be completed"
	}

	writeJSONError(w, r, status, code, message)
}

func writeNotConfigured(w http.ResponseWriter, r *http.Request, what string) {
	writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", what+" handler not configured")
}

func reportMeta(fromCache bool, generatedAt time.Time) *ResponseMeta {
	meta := &ResponseMeta{FromCache: fromCache}
	if !generatedAt.IsZero() {
		meta.GeneratedAt = &generatedAt
	}
	return meta
}
