// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/gatekeeper/internal/dispatch"
	"github.com/tomtom215/gatekeeper/internal/models"
)

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws" + query
}

func waitForSubscribers(t *testing.T, hub *dispatch.Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers = %d, want %d", hub.SubscriberCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocket_StreamsDecisions(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "")
	srv := httptest.NewServer(env.handler)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "?principals=alice@example.com"), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	waitForSubscribers(t, env.hub, 1)

	env.hub.Publish(models.AuditEntry{AttemptID: "other", Principal: "bob@example.com"})
	env.hub.Publish(models.AuditEntry{
		AttemptID: "ws-1",
		Principal: "alice@example.com",
		Decision:  models.Decision{AttemptID: "ws-1", Outcome: models.OutcomeBlocked, RiskScore: 95},
	})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var msg struct {
		Type string            `json:"type"`
		Data models.AuditEntry `json:"data"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if msg.Type != dispatch.MessageTypeDecision || msg.Data.AttemptID != "ws-1" {
		t.Errorf("message = %+v, want decision ws-1", msg)
	}
	if msg.Data.Decision.Outcome != models.OutcomeBlocked {
		t.Errorf("outcome = %s, want BLOCKED", msg.Data.Decision.Outcome)
	}
}

func TestWebSocket_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		query      string
		origin     string
		wantStatus int
	}{
		{"missing principals", "", "", http.StatusBadRequest},
		{"blank principals", "?principals=,,", "", http.StatusBadRequest},
		{"foreign origin", "?principals=*", "https://evil.example.com", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t, "")
			srv := httptest.NewServer(env.handler)
			t.Cleanup(srv.Close)

			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, tt.query), header)
			if err == nil {
				_ = conn.Close()
				t.Fatal("expected handshake failure")
			}
			if resp == nil || resp.StatusCode != tt.wantStatus {
				code := 0
				if resp != nil {
					code = resp.StatusCode
				}
				t.Errorf("status = %d, want %d", code, tt.wantStatus)
			}
			if env.hub.SubscriberCount() != 0 {
				t.Errorf("rejected handshake left %d subscribers", env.hub.SubscriberCount())
			}
		})
	}
}

func TestWebSocket_AllowedOrigin(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "")
	srv := httptest.NewServer(env.handler)
	t.Cleanup(srv.Close)

	header := http.Header{}
	header.Set("Origin", "https://console.example.com")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "?principals=*"), header)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	_ = conn.Close()
}
