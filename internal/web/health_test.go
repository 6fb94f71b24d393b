package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealth(t *testing.T) {
	tests := []struct {
		name           string
		health         map[string]Pinger
		expectedStatus int
		expectedHealth string
		expectedQueue  string
		expectedStore  string
	}{
		{
			name: "all healthy",
			health: map[string]Pinger{
				"queue":   fakePinger{},
				"archive": fakePinger{},
			},
			expectedStatus: http.StatusOK,
			expectedHealth: "healthy",
			expectedQueue:  "healthy",
			expectedStore:  "healthy",
		},
		{
			name: "unhealthy queue",
			health: map[string]Pinger{
				"queue":   fakePinger{err: errors.New("connection refused")},
				"archive": fakePinger{},
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedHealth: "degraded",
			expectedQueue:  "unhealthy",
			expectedStore:  "healthy",
		},
		{
			name: "unhealthy archive",
			health: map[string]Pinger{
				"queue":   fakePinger{},
				"archive": fakePinger{err: errors.New("database is locked")},
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedHealth: "degraded",
			expectedQueue:  "healthy",
			expectedStore:  "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, err := New(Options{Health: tt.health, Logger: discardLogger()})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rr := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected Content-Type application/json, got %s", ct)
			}

			var response HealthResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
				t.Fatalf("Failed to unmarshal response: %v", err)
			}

			if response.Status != tt.expectedHealth {
				t.Errorf("Expected health status %s, got %s", tt.expectedHealth, response.Status)
			}
			if response.Service != "dungeon-master" {
				t.Errorf("Expected service dungeon-master, got %s", response.Service)
			}
			if response.Components["queue"] != tt.expectedQueue {
				t.Errorf("Expected queue status %s, got %s", tt.expectedQueue, response.Components["queue"])
			}
			if response.Components["archive"] != tt.expectedStore {
				t.Errorf("Expected archive status %s, got %s", tt.expectedStore, response.Components["archive"])
			}
			if response.Timestamp.IsZero() {
				t.Error("Expected timestamp to be set")
			}
		})
	}
}
