package notify

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/loppo-llc/termmux/internal/mux"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func withTempHome(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
}

func TestWebpushForwarderGeneratesAndReusesVAPIDKeys(t *testing.T) {
	withTempHome(t)
	f1, err := NewWebpushForwarder(testLogger())
	if err != nil {
		t.Fatalf("NewWebpushForwarder: %v", err)
	}
	if f1.VAPIDPublicKey() == "" {
		t.Fatalf("expected a generated VAPID public key")
	}

	f2, err := NewWebpushForwarder(testLogger())
	if err != nil {
		t.Fatalf("NewWebpushForwarder (second): %v", err)
	}
	if f2.VAPIDPublicKey() != f1.VAPIDPublicKey() {
		t.Fatalf("expected the second forwarder to reuse the persisted VAPID key")
	}
}

func TestWebpushForwarderDedupesSubscriptions(t *testing.T) {
	withTempHome(t)
	f, err := NewWebpushForwarder(testLogger())
	if err != nil {
		t.Fatalf("NewWebpushForwarder: %v", err)
	}
	sub := &webpush.Subscription{Endpoint: "https://push.example/abc"}
	f.Subscribe(sub)
	f.Subscribe(sub)
	if len(f.subscriptions) != 1 {
		t.Fatalf("subscriptions = %d, want 1 after duplicate Subscribe", len(f.subscriptions))
	}
	f.Unsubscribe(sub.Endpoint)
	if len(f.subscriptions) != 0 {
		t.Fatalf("subscriptions = %d, want 0 after Unsubscribe", len(f.subscriptions))
	}
}

func TestWebpushForwarderIgnoresUnrelatedNotifications(t *testing.T) {
	withTempHome(t)
	f, err := NewWebpushForwarder(testLogger())
	if err != nil {
		t.Fatalf("NewWebpushForwarder: %v", err)
	}
	if !f.Handle(mux.Notification{Kind: mux.PaneAdded}) {
		t.Fatalf("Handle must always return true to stay subscribed")
	}
}

func TestSlackForwarderPostsAlertText(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewSlackForwarder(srv.URL, testLogger())
	if !f.Handle(mux.Notification{Kind: mux.Alert, AlertText: "disk low"}) {
		t.Fatalf("Handle must return true")
	}
	if gotBody == "" {
		t.Fatalf("expected the webhook to receive a request body")
	}
}

func TestSlackForwarderIgnoresUnrelatedNotifications(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := NewSlackForwarder(srv.URL, testLogger())
	f.Handle(mux.Notification{Kind: mux.TabResized})
	if called {
		t.Fatalf("expected no webhook call for an unrelated notification kind")
	}
}
