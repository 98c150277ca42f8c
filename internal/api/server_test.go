package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nerrad567/vigil-core/internal/bus"
	"github.com/nerrad567/vigil-core/internal/device"
	"github.com/nerrad567/vigil-core/internal/infrastructure/config"
	"github.com/nerrad567/vigil-core/internal/infrastructure/logging"
	"github.com/nerrad567/vigil-core/internal/service"
	"github.com/nerrad567/vigil-core/internal/uow"
)

const testUUID = "3f2a09c4-7d1e-4b8a-9c3f-2e5d6a7b8c9d"

// setupServer builds a server over a fresh in-memory core with a fixed clock.
func setupServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()

	store := device.NewMemoryStore()
	svc := service.NewService(uow.NewFactory(store, nil), nil)
	svc.SetClock(func() time.Time { return time.Unix(1000, 0).UTC() })

	b := bus.New(nil)
	if err := service.Wire(b, svc); err != nil {
		t.Fatalf("Wire() error = %v", err)
	}

	s, err := New(Deps{
		Config:     config.APIConfig{},
		Logger:     logging.Default(),
		Dispatcher: b,
		Service:    svc,
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s, s.buildRouter()
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func registerBody(uuid string) map[string]any {
	return map[string]any{
		"uuid":      uuid,
		"name":      "pump-station",
		"last_will": "pump offline",
		"ttl":       300,
	}
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() with empty deps should fail")
	}
}

func TestRegisterDevice_Endpoint(t *testing.T) {
	_, router := setupServer(t)

	t.Run("registers and returns the device", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/devices", registerBody(testUUID))
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
		}
		var d device.Device
		if err := json.Unmarshal(rec.Body.Bytes(), &d); err != nil {
			t.Fatal(err)
		}
		if d.UUID != testUUID || d.FireAt != 1300 {
			t.Errorf("device = %+v, want uuid %s fire_at 1300", d, testUUID)
		}
	})

	t.Run("assigns a uuid when omitted", func(t *testing.T) {
		body := registerBody("")
		rec := doJSON(t, router, http.MethodPost, "/api/v1/devices", body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
		}
		var d device.Device
		if err := json.Unmarshal(rec.Body.Bytes(), &d); err != nil {
			t.Fatal(err)
		}
		if err := device.ValidateUUID(d.UUID); err != nil {
			t.Errorf("assigned uuid %q is invalid: %v", d.UUID, err)
		}
	})

	t.Run("duplicate registration conflicts", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/devices", registerBody(testUUID))
		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
	})

	t.Run("validation failures are 400", func(t *testing.T) {
		tests := []struct {
			name string
			body map[string]any
		}{
			{"bad uuid", map[string]any{"uuid": "nope", "name": "x", "ttl": 60}},
			{"missing name", map[string]any{"ttl": 60}},
			{"zero ttl", map[string]any{"name": "x", "ttl": 0}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := doJSON(t, router, http.MethodPost, "/api/v1/devices", tt.body)
				if rec.Code != http.StatusBadRequest {
					t.Errorf("status = %d, want 400", rec.Code)
				}
			})
		}
	})

	t.Run("malformed JSON is 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/devices", bytes.NewBufferString("{nope"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestGetAndListDevices_Endpoints(t *testing.T) {
	_, router := setupServer(t)
	doJSON(t, router, http.MethodPost, "/api/v1/devices", registerBody(testUUID))

	t.Run("get returns the device", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/devices/"+testUUID, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("unknown uuid is 404", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/devices/00000000-0000-4000-8000-000000000000", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("malformed uuid is 400", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/devices/garbage", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("list returns count", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/devices", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var body struct {
			Count int `json:"count"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if body.Count != 1 {
			t.Errorf("count = %d, want 1", body.Count)
		}
	})
}

func TestKeepAlive_Endpoint(t *testing.T) {
	_, router := setupServer(t)
	doJSON(t, router, http.MethodPost, "/api/v1/devices", registerBody(testUUID))

	t.Run("renews fire_at", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/devices/%s/keepalive", testUUID), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
		}
		var body struct {
			UUID   string `json:"uuid"`
			FireAt int64  `json:"fire_at"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		// Fixed clock: renewal lands on the same now + ttl.
		if body.FireAt != 1300 {
			t.Errorf("fire_at = %d, want 1300", body.FireAt)
		}
	})

	t.Run("unknown uuid is 404", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/devices/00000000-0000-4000-8000-000000000000/keepalive", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestRemoveDevice_Endpoint(t *testing.T) {
	_, router := setupServer(t)
	doJSON(t, router, http.MethodPost, "/api/v1/devices", registerBody(testUUID))

	rec := doJSON(t, router, http.MethodDelete, "/api/v1/devices/"+testUUID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/devices/"+testUUID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestHealth_Endpoint(t *testing.T) {
	s, _ := setupServer(t)
	s.health = map[string]HealthChecker{
		"healthy":   healthCheckerFunc(func(context.Context) error { return nil }),
		"unhealthy": healthCheckerFunc(func(context.Context) error { return errors.New("down") }),
	}
	router := s.buildRouter()

	rec := doJSON(t, router, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Status     string            `json:"status"`
		Components map[string]string `json:"components"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "degraded" {
		t.Errorf("status = %q, want degraded", body.Status)
	}
	if body.Components["healthy"] != "ok" || body.Components["unhealthy"] != "down" {
		t.Errorf("components = %v", body.Components)
	}
}

// healthCheckerFunc adapts a function to HealthChecker.
type healthCheckerFunc func(ctx context.Context) error

func (f healthCheckerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }
