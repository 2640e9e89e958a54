package tests

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/elimu/apps/api/echo"
	"github.com/trezcool/elimu/testutil"
)

func Test_home(t *testing.T) {
	app, stack := setup(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to "+stack.Conf.AppName+" API!", rec.Body.String())
}

func Test_healthz(t *testing.T) {
	stack := testutil.NewStack()
	failing := false
	app := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       stack.Conf,
			Logger:     stack.Logger,
			UserSvc:    stack.UserSvc,
			LMS:        stack.LMS,
			Validate:   stack.Validate,
			Translator: stack.Translator,
			Health: map[string]echoapi.HealthCheck{
				"database": func(context.Context) error {
					if failing {
						return errors.New("connection refused")
					}
					return nil
				},
			},
			DisableReqLogs: true,
		},
	)

	tests := []struct {
		name     string
		failing  bool
		wantCode int
		wantData []byte
	}{
		{
			name: "Healthy", wantCode: http.StatusOK,
			wantData: []byte(`{"build": "` + stack.Conf.Build + `", "checks": {"database": "ok"}}`),
		},
		{
			name: "Database down", failing: true, wantCode: http.StatusServiceUnavailable,
			wantData: []byte(`{"build": "` + stack.Conf.Build + `", "checks": {"database": "connection refused"}}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failing = tt.failing
			rec := httpTest{path: "/healthz"}.run(t, app)
			checkCodeAndData(t, httpTest{wantCode: tt.wantCode, wantData: tt.wantData}, rec)
		})
	}
}

func Test_metrics(t *testing.T) {
	app, _ := setup(t)

	// generate some traffic first
	for _, path := range []string{"/v1/courses", "/v1/courses/lol"} {
		httpTest{path: path}.run(t, app)
	}

	rec := httpTest{path: "/metrics"}.run(t, app)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `elimu_http_requests_total{code="200",method="GET",route="/v1/courses"} 1`), body)
	assert.True(t, strings.Contains(body, `elimu_http_requests_total{code="404",method="GET",route="/v1/courses/:id"} 1`), body)
	assert.True(t, strings.Contains(body, "elimu_http_request_duration_seconds"), body)
	assert.True(t, strings.Contains(body, "go_goroutines"), body)
}
