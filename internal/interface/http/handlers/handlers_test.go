package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCompositeHealthChecker(t *testing.T) {
	t.Run("no checks", func(t *testing.T) {
		status := NewCompositeHealthChecker("v1").Check(context.Background())
		assert.True(t, status.Healthy)
		assert.Equal(t, "No health checks registered", status.Message)
	})

	t.Run("required failure", func(t *testing.T) {
		c := NewCompositeHealthChecker("v1")
		c.AddCheck("store", func(context.Context) error { return errors.New("connection refused") })
		c.AddCheck("other", func(context.Context) error { return nil })

		status := c.Check(context.Background())
		assert.False(t, status.Healthy)
		assert.False(t, status.Ready)
		assert.Equal(t, "Some checks failed: store", status.Message)
		assert.Equal(t, "connection refused", status.Checks["store"].Message)
		assert.Equal(t, "OK", status.Checks["other"].Message)
	})

	t.Run("optional failure degrades", func(t *testing.T) {
		c := NewCompositeHealthChecker("v1")
		c.AddCheck("store", func(context.Context) error { return nil })
		c.AddOptionalCheck("report_cache", func(context.Context) error { return errors.New("timeout") })

		status := c.Check(context.Background())
		assert.True(t, status.Healthy)
		assert.True(t, status.Ready)
		assert.True(t, status.Degraded)
		assert.True(t, status.Checks["report_cache"].Optional)
		assert.Equal(t, "Degraded: report_cache", status.Message)
	})

	t.Run("slow check times out", func(t *testing.T) {
		c := NewCompositeHealthChecker("v1")
		c.SetTimeout(20 * time.Millisecond)
		c.AddCheck("store", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})

		status := c.Check(context.Background())
		assert.False(t, status.Healthy)
	})
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestPingCheck(t *testing.T) {
	assert.NoError(t, PingCheck(pinger{})(context.Background()))
	assert.Error(t, PingCheck(pinger{err: errors.New("x")})(context.Background()))
}

func TestAPIKeyAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("good-key"), bcrypt.MinCost)
	require.NoError(t, err)

	auth := NewAPIKeyAuth("", []string{"", " " + string(hash) + " "})
	assert.True(t, auth.Enabled())
	assert.True(t, auth.IsValid("good-key"))
	assert.True(t, auth.IsValid("good-key"), "cached verification")
	assert.False(t, auth.IsValid("bad-key"))
	assert.False(t, auth.IsValid(""))

	assert.False(t, NewAPIKeyAuth(APIKeyHeader, nil).Enabled())
}

func TestAPIKeyAuth_Middleware(t *testing.T) {
	hash, err := HashAPIKey("good-key", bcrypt.MinCost)
	require.NoError(t, err)
	auth := NewAPIKeyAuth(APIKeyHeader, []string{hash})

	var denied []bool
	h := auth.Middleware(func(w http.ResponseWriter, _ *http.Request, missing bool) {
		denied = append(denied, missing)
		w.WriteHeader(http.StatusUnauthorized)
	})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	serve := func(header, value string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set(header, value)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, serve("", ""))
	assert.Equal(t, http.StatusUnauthorized, serve(APIKeyHeader, "nope"))
	assert.Equal(t, http.StatusOK, serve(APIKeyHeader, "good-key"))
	assert.Equal(t, http.StatusOK, serve("Authorization", "Bearer good-key"))
	assert.Equal(t, []bool{true, false}, denied)
}

func TestAPIKeyAuth_DisabledPassesThrough(t *testing.T) {
	called := false
	h := NewAPIKeyAuth(APIKeyHeader, nil).Middleware(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}

func TestRequestSizeLimit(t *testing.T) {
	h := RequestSizeLimitMiddleware(8)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}")))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) MiddlewareFunc {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := ChainHandler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mw("a"), mw("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"a", "b", "handler"}, order)
}

func TestParseGradeWebhook(t *testing.T) {
	p, err := ParseGradeWebhook(strings.NewReader(`{
		"delivery_id": "d-7",
		"events": [
			{"type": "grade.recorded", "enrollment_id": " enr-1 ", "student_id": "MAT-1"},
			{"type": "grade.deleted", "enrollment_id": "enr-1", "student_id": "MAT-1"},
			{"type": "structure.changed", "enrollment_id": "enr-2"},
			{"type": "goal.changed", "student_id": "MAT-3"}
		]
	}`))
	require.NoError(t, err)
	assert.Equal(t, "d-7", p.DeliveryID)
	assert.Equal(t, "enr-1", p.Events[0].EnrollmentID)

	targets := p.Targets()
	require.Len(t, targets, 3)
	assert.Equal(t, InvalidationTarget{EnrollmentID: "enr-1", StudentID: "MAT-1", Reason: EventGradeRecorded}, targets[0])
	assert.Equal(t, "enr-2", targets[1].EnrollmentID)
	assert.Equal(t, "MAT-3", targets[2].StudentID)
}

func TestParseGradeWebhook_Invalid(t *testing.T) {
	cases := map[string]string{
		"not json":       `{`,
		"no events":      `{"events": []}`,
		"unknown type":   `{"events": [{"type": "grade.exploded", "enrollment_id": "e"}]}`,
		"missing enr":    `{"events": [{"type": "grade.recorded", "student_id": "MAT-1"}]}`,
		"no identifiers": `{"events": [{"type": "goal.changed"}]}`,
		"unknown field":  `{"events": [{"type": "goal.changed", "student_id": "s"}], "extra": 1}`,
		"blank student":  `{"events": [{"type": "goal.changed", "student_id": "   "}]}`,
	}
	for name, body := range cases {
		_, err := ParseGradeWebhook(strings.NewReader(body))
		assert.ErrorIs(t, err, ErrInvalidPayload, name)
	}
}

func TestParseGradeWebhook_TooManyEvents(t *testing.T) {
	var b strings.Builder
	b.WriteString(`{"events":[`)
	for i := 0; i <= MaxEventsPerWebhook; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(`{"type":"goal.changed","student_id":"s"}`)
	}
	b.WriteString(`]}`)

	_, err := ParseGradeWebhook(strings.NewReader(b.String()))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}
