package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"reservations/pkg/config"
	"reservations/pkg/logger"
	"reservations/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

type routes func(*httprouter.Router)

func (r routes) RegisterRoutes(router *httprouter.Router) { r(router) }

func testConfig() *config.Config {
	return &config.Config{
		Port:              "0",
		RequestTimeout:    time.Second,
		MaxRequestSize:    1024,
		IdempotencyTTL:    time.Minute,
		RateLimitRequests: 1,
		RateLimitWindow:   time.Minute,
		ShutdownTimeout:   time.Second,
		Log:               logger.Discard(),
	}
}

func newTestApp(t *testing.T) *Application {
	t.Helper()

	health := routes(func(r *httprouter.Router) {
		r.GET("/health", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
			w.WriteHeader(http.StatusOK)
		})
	})
	api := routes(func(r *httprouter.Router) {
		r.POST("/reservations", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
			w.WriteHeader(http.StatusCreated)
		})
		r.GET("/panic", func(http.ResponseWriter, *http.Request, httprouter.Params) {
			panic("boom")
		})
	})

	a := NewApplication(testConfig())
	a.SetApp(health, api)
	t.Cleanup(func() { a.Shutdown(context.Background()) })
	return a
}

func serve(h http.Handler, method, path string, header map[string]string) int {
	req := httptest.NewRequest(method, path, strings.NewReader("{}"))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestApplication_MiddlewareStack(t *testing.T) {
	h := newTestApp(t).Handler()
	jsonHeader := map[string]string{"Content-Type": "application/json"}

	if code := serve(h, http.MethodGet, "/health", nil); code != http.StatusOK {
		t.Errorf("health status = %d", code)
	}
	if code := serve(h, http.MethodPost, "/reservations", nil); code != http.StatusUnsupportedMediaType {
		t.Errorf("missing content type status = %d, want 415", code)
	}
	if code := serve(h, http.MethodGet, "/panic", nil); code != http.StatusInternalServerError {
		t.Errorf("panic status = %d, want 500", code)
	}

	alice := map[string]string{"Content-Type": "application/json", middleware.HeaderUserID: "alice"}
	if code := serve(h, http.MethodPost, "/reservations", alice); code != http.StatusCreated {
		t.Errorf("first request status = %d", code)
	}
	if code := serve(h, http.MethodPost, "/reservations", alice); code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", code)
	}
	if code := serve(h, http.MethodPost, "/reservations", jsonHeader); code != http.StatusCreated {
		t.Errorf("anonymous request status = %d", code)
	}
}

func TestApplication_ShutdownHooksRunInOrder(t *testing.T) {
	a := newTestApp(t)

	var order []string
	a.OnShutdown("channel", func(context.Context) error {
		order = append(order, "channel")
		return errors.New("already closed")
	})
	a.OnShutdown("producer", func(context.Context) error {
		order = append(order, "producer")
		return nil
	})

	a.runShutdownHooks(context.Background())

	if strings.Join(order, ",") != "channel,producer" {
		t.Errorf("hooks ran as %v", order)
	}
}
