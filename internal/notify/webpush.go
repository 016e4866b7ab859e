// Package notify implements external notification forwarders: Mux
// subscribers that relay Alert/PaneRemoved/WindowRemoved events to
// something outside the process — a browser push endpoint or a Slack
// incoming webhook.
package notify

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/loppo-llc/termmux/internal/mux"
)

const configDir = ".config/termmux"
const vapidFile = "vapid.json"

// WebpushForwarder is a Forwarder that relays Alert, PaneRemoved and
// WindowRemoved notifications to every registered browser push
// subscription.
type WebpushForwarder struct {
	mu            sync.Mutex
	logger        *slog.Logger
	vapidPrivate  string
	vapidPublic   string
	subscriptions []*webpush.Subscription
}

type vapidKeys struct {
	PrivateKey string `json:"privateKey"`
	PublicKey  string `json:"publicKey"`
}

// NewWebpushForwarder loads or generates the VAPID keypair used to sign
// every push it sends.
func NewWebpushForwarder(logger *slog.Logger) (*WebpushForwarder, error) {
	f := &WebpushForwarder{logger: logger}
	if err := f.loadOrGenerateVAPID(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *WebpushForwarder) VAPIDPublicKey() string { return f.vapidPublic }

// Subscribe registers a browser push endpoint, deduping by endpoint URL.
func (f *WebpushForwarder) Subscribe(sub *webpush.Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.subscriptions {
		if existing.Endpoint == sub.Endpoint {
			return
		}
	}
	f.subscriptions = append(f.subscriptions, sub)
	if f.logger != nil {
		ep := sub.Endpoint
		if len(ep) > 50 {
			ep = ep[:50] + "..."
		}
		f.logger.Info("push subscription added", "endpoint", ep)
	}
}

func (f *WebpushForwarder) Unsubscribe(endpoint string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, sub := range f.subscriptions {
		if sub.Endpoint == endpoint {
			f.subscriptions = append(f.subscriptions[:i], f.subscriptions[i+1:]...)
			return
		}
	}
}

// Handle is a mux.Subscriber driven by the Mux's whole notification
// stream; it stays subscribed forever (always returns true).
func (f *WebpushForwarder) Handle(n mux.Notification) bool {
	var text string
	switch n.Kind {
	case mux.Alert:
		text = n.AlertText
	case mux.PaneRemoved:
		text = fmt.Sprintf("pane %d closed", uint64(n.PaneID))
	case mux.WindowRemoved:
		text = fmt.Sprintf("window %d closed", uint64(n.WindowID))
	default:
		return true
	}
	f.send([]byte(text))
	return true
}

func (f *WebpushForwarder) send(payload []byte) {
	f.mu.Lock()
	subs := make([]*webpush.Subscription, len(f.subscriptions))
	copy(subs, f.subscriptions)
	f.mu.Unlock()

	for _, sub := range subs {
		resp, err := webpush.SendNotification(payload, sub, &webpush.Options{
			VAPIDPublicKey:  f.vapidPublic,
			VAPIDPrivateKey: f.vapidPrivate,
			Subscriber:      "mailto:termmux@localhost",
		})
		if err != nil {
			if f.logger != nil {
				f.logger.Debug("push send failed", "err", err)
			}
			continue
		}
		resp.Body.Close()
	}
}

func (f *WebpushForwarder) loadOrGenerateVAPID() error {
	home, _ := os.UserHomeDir()
	dir := filepath.Join(home, configDir)
	path := filepath.Join(dir, vapidFile)

	if data, err := os.ReadFile(path); err == nil {
		var keys vapidKeys
		if err := json.Unmarshal(data, &keys); err == nil && keys.PrivateKey != "" {
			f.vapidPrivate = keys.PrivateKey
			f.vapidPublic = keys.PublicKey
			return nil
		}
	}

	privKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generate VAPID key: %w", err)
	}
	privBytes, err := x509.MarshalECPrivateKey(privKey)
	if err != nil {
		return fmt.Errorf("marshal VAPID private key: %w", err)
	}
	pubBytes := elliptic.Marshal(elliptic.P256(), privKey.PublicKey.X, privKey.PublicKey.Y)

	f.vapidPrivate = base64.RawURLEncoding.EncodeToString(privBytes)
	f.vapidPublic = base64.RawURLEncoding.EncodeToString(pubBytes)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, _ := json.MarshalIndent(vapidKeys{PrivateKey: f.vapidPrivate, PublicKey: f.vapidPublic}, "", "  ")
	return os.WriteFile(path, data, 0o600)
}

var _ mux.Subscriber = (*WebpushForwarder)(nil).Handle
