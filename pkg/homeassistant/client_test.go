package homeassistant

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestClientState(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/api/states/sensor.h2s_print_status" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"entity_id": "sensor.h2s_print_status",
			"state": "running",
			"attributes": {"friendly_name": "H2S Print Status"}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "llat-secret", testLogger())

	entity, err := client.State(context.Background(), "sensor.h2s_print_status")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if gotAuth != "Bearer llat-secret" {
		t.Errorf("Expected bearer auth header, got %q", gotAuth)
	}
	if entity.State != "running" {
		t.Errorf("Expected state 'running', got %q", entity.State)
	}
	if entity.StringAttr("friendly_name") != "H2S Print Status" {
		t.Errorf("Unexpected friendly_name: %q", entity.StringAttr("friendly_name"))
	}
}

func TestClientStateNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "llat-secret", testLogger())

	_, err := client.State(context.Background(), "sensor.does_not_exist")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got: %v", err)
	}
}

func TestClientStateUnauthorized(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		client := NewClient(server.URL, "bad-token", testLogger())

		_, err := client.State(context.Background(), "sensor.h2s_print_status")
		server.Close()

		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("Expected ErrUnauthorized for status %d, got: %v", status, err)
		}
	}
}

func TestClientStateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "llat-secret", testLogger())

	_, err := client.State(context.Background(), "sensor.h2s_print_status")
	if err == nil {
		t.Fatal("Expected error for 500 response")
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnauthorized) {
		t.Errorf("Unexpected sentinel error for 500: %v", err)
	}
}

func TestClientStates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/states" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"entity_id": "sensor.h2s_print_status", "state": "idle", "attributes": {}},
			{"entity_id": "sensor.h2s_print_progress", "state": "0", "attributes": {}}
		]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "llat-secret", testLogger())

	entities, err := client.States(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(entities) != 2 {
		t.Fatalf("Expected 2 entities, got %d", len(entities))
	}
	if entities[0].EntityID != "sensor.h2s_print_status" {
		t.Errorf("Unexpected first entity: %s", entities[0].EntityID)
	}
}

func TestClientCallService(t *testing.T) {
	var gotPath, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "llat-secret", testLogger())

	err := client.CallService(context.Background(), "button", "press", map[string]any{
		"entity_id": "button.h2s_pause",
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if gotPath != "/api/services/button/press" {
		t.Errorf("Unexpected service path: %s", gotPath)
	}
	if gotBody != `{"entity_id":"button.h2s_pause"}` {
		t.Errorf("Unexpected payload: %s", gotBody)
	}
}
