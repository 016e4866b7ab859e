// Command termmuxd runs the mux core as a standalone daemon: it wires up
// the LocalDomain (and, if configured, a RemoteDomain peer), the SQLite
// snapshot store, the notification forwarders, and the client pairing
// registry, then idles until told to shut down. There is deliberately no
// HTTP/WS façade here — termmuxd is the backend a future front-end
// attaches to.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"tailscale.com/tsnet"

	"github.com/loppo-llc/termmux/internal/config"
	"github.com/loppo-llc/termmux/internal/localdomain"
	"github.com/loppo-llc/termmux/internal/mux"
	"github.com/loppo-llc/termmux/internal/notify"
	"github.com/loppo-llc/termmux/internal/pairing"
	"github.com/loppo-llc/termmux/internal/pane"
	"github.com/loppo-llc/termmux/internal/remotedomain"
	"github.com/loppo-llc/termmux/internal/store"
	"github.com/loppo-llc/termmux/internal/tab"
)

var version = "0.1.0"

func main() {
	configPath := flag.String("config", defaultConfigPath(), "path to config YAML")
	dbPath := flag.String("db", defaultDBPath(), "path to the SQLite snapshot store")
	peerAddr := flag.String("peer", "", "peer termmux control address (host:port), enables a RemoteDomain")
	useTailscale := flag.Bool("tailscale", false, "dial the peer over a tsnet client instead of plain TCP")
	slackWebhook := flag.String("slack-webhook", "", "Slack incoming webhook URL for Alert/close notifications")
	enableWebpush := flag.Bool("webpush", false, "enable browser push notifications")
	pairingBaseURL := flag.String("pairing-base-url", "", "base URL minted into client pairing QR codes (empty disables pairing)")
	snapshotInterval := flag.String("snapshot-cron", "@every 5s", "cron schedule for the periodic window snapshot sweep")
	debug := flag.Bool("debug", false, "enable debug logging")
	showVersion := flag.Bool("version", false, "show version")
	flag.Parse()

	if *showVersion {
		fmt.Println("termmuxd", version)
		return
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	snapshotStore, err := store.Open(*dbPath, logger)
	if err != nil {
		logger.Error("failed to open snapshot store", "err", err)
		os.Exit(1)
	}
	defer snapshotStore.Close()

	m := mux.New(logger, cfg)

	localID := m.DomainIDAllocator().Alloc()
	local := localdomain.New(localID, "local", cfg, logger, nil, m.PaneIDAllocator(), m.TabIDAllocator(), localdomain.Hooks{
		RemovePane: m.RemovePane,
		PaneOutput: m.NotifyPaneOutput,
	})
	m.AddDomain(local)
	logger.Info("registered local domain", "domain_id", uint64(localID))

	var tsServer *tsnet.Server
	if *peerAddr != "" {
		if *useTailscale {
			tsServer = &tsnet.Server{
				Hostname: "termmuxd",
				Logf:     func(format string, args ...any) { logger.Debug(fmt.Sprintf(format, args...)) },
			}
			defer tsServer.Close()
		}
		remoteID := m.DomainIDAllocator().Alloc()
		remote := remotedomain.New(remoteID, "remote", *peerAddr, tsServer, logger, m.PaneIDAllocator(), m.TabIDAllocator())
		m.AddDomain(remote)
		logger.Info("registered remote domain", "domain_id", uint64(remoteID), "peer", *peerAddr, "tailscale", *useTailscale)
	}

	if *slackWebhook != "" {
		forwarder := notify.NewSlackForwarder(*slackWebhook, logger)
		m.Subscribe(forwarder.Handle)
		logger.Info("subscribed slack notification forwarder")
	}
	if *enableWebpush {
		forwarder, err := notify.NewWebpushForwarder(logger)
		if err != nil {
			logger.Error("failed to start webpush forwarder", "err", err)
		} else {
			m.Subscribe(forwarder.Handle)
			logger.Info("subscribed webpush notification forwarder", "vapid_public_key", forwarder.VAPIDPublicKey())
		}
	}

	// pairingRegistry mints QR-coded pairing codes on demand once a
	// front-end wires up client registration; this daemon only owns its
	// lifetime.
	var pairingRegistry *pairing.Registry
	if *pairingBaseURL != "" {
		pairingRegistry = pairing.New(*pairingBaseURL)
		logger.Info("client pairing enabled", "base_url", *pairingBaseURL)
	}
	_ = pairingRegistry

	if existing, err := snapshotStore.LoadAll(context.Background()); err != nil {
		logger.Warn("failed to load persisted window snapshots", "err", err)
	} else {
		logger.Info("loaded persisted window snapshots", "count", len(existing))
	}

	sched := cron.New()
	if _, err := sched.AddFunc(*snapshotInterval, func() {
		snapshotAllWindows(context.Background(), m, snapshotStore, logger)
	}); err != nil {
		logger.Error("failed to schedule snapshot sweep", "err", err)
		os.Exit(1)
	}
	if _, err := sched.AddFunc("@every 5s", func() { m.PruneDeadWindows() }); err != nil {
		logger.Error("failed to schedule prune sweep", "err", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	logger.Info("termmuxd running", "version", version, "config", *configPath, "db", *dbPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logger.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	snapshotAllWindows(shutdownCtx, m, snapshotStore, logger)
}

// snapshotAllWindows walks every registered window and persists the pane
// tree of its active tab; it runs on the cron schedule and once at
// shutdown.
func snapshotAllWindows(ctx context.Context, m *mux.Mux, s *store.Store, logger *slog.Logger) {
	now := time.Now()
	var snaps []store.WindowSnapshot
	for _, windowID := range m.IterWindowIDs() {
		w, ok := m.GetWindow(windowID)
		if !ok {
			continue
		}
		// A window's layout tree lives per-tab; a window with more than
		// one tab persists its active tab, matching what gets restored
		// into view first.
		active := w.ActiveTab()
		if active == nil {
			continue
		}
		node := active.CodecPaneTree(windowID, w.Workspace(), paneEntry)
		snaps = append(snaps, store.WindowSnapshot{
			WindowID:  windowID,
			Workspace: w.Workspace(),
			UpdatedAt: now,
			Tree:      node,
		})
	}
	s.SaveAll(ctx, snaps)
	if logger != nil {
		logger.Debug("snapshot sweep complete", "windows", len(snaps))
	}
}

// paneEntry builds the flat PaneEntry describing one leaf, used as
// CodecPaneTree's makeEntry callback.
func paneEntry(p pane.Pane, leafIndex int, isActive, isZoomed bool) tab.PaneEntry {
	return tab.PaneEntry{
		PaneID:     p.PaneID(),
		Title:      p.GetTitle(),
		Size:       p.GetDimensions(),
		WorkingDir: p.GetCurrentWorkingDir(pane.AllowStale),
		IsActive:   isActive,
		IsZoomed:   isZoomed,
		Cursor:     p.GetCursorPosition(),
		TTYName:    p.TTYName(),
	}
}

func defaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "termmux", "config.yaml")
}

func defaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "termmux", "termmux.db")
}
