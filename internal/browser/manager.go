package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// Config configures the rod-backed Driver. Adapted from
// domwatch/internal/browser.Config, trimmed to the fields this spec's
// capture/diff stages actually use (no Xvfb/headful mode — spec.md's
// Non-goals exclude exact-replica browser fidelity, so headless-only is
// sufficient).
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance. Empty
	// launches a local Chrome via launcher.
	RemoteURL string

	// MemoryLimit in bytes; Chrome is recycled when JS heap usage exceeds
	// it. Default 1GB.
	MemoryLimit int64

	// RecycleInterval is the maximum lifetime of a Chrome process before
	// a proactive recycle. Default 4h.
	RecycleInterval time.Duration

	// ResourceBlocking lists resource types ("image", "font", "media",
	// "stylesheet") to block on non-screenshot pages (SUPPLEMENTED
	// FEATURES, SPEC_FULL.md §12).
	ResourceBlocking []string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.MemoryLimit <= 0 {
		c.MemoryLimit = 1 << 30
	}
	if c.RecycleInterval <= 0 {
		c.RecycleInterval = 4 * time.Hour
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// RodDriver manages the Chrome process lifecycle and mints Contexts.
// Grounded on domwatch/internal/browser/manager.go; adds no headful/Xvfb
// path, since this spec only ever runs headless.
type RodDriver struct {
	cfg     Config
	mu      sync.RWMutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	startAt time.Time
	closed  bool
}

// NewDriver constructs a RodDriver. Call Start to launch or connect to
// Chrome.
func NewDriver(cfg Config) *RodDriver {
	cfg.defaults()
	return &RodDriver{cfg: cfg}
}

func (m *RodDriver) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("browser: driver is closed")
	}

	b, err := m.launch()
	if err != nil {
		return err
	}
	m.browser = b
	m.startAt = time.Now()

	go m.monitorLoop(ctx)
	return nil
}

func (m *RodDriver) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.cleanupLocked()
}

func (m *RodDriver) NewContext(ctx context.Context) (Context, error) {
	m.mu.RLock()
	b := m.browser
	m.mu.RUnlock()
	if b == nil {
		return nil, fmt.Errorf("browser: driver not started")
	}

	incognito, err := b.Incognito()
	if err != nil {
		return nil, fmt.Errorf("browser: open incognito context: %w", err)
	}
	return &rodContext{browser: incognito, cfg: m.cfg}, nil
}

func (m *RodDriver) launch() (*rod.Browser, error) {
	log := m.cfg.Logger
	var wsURL string

	if m.cfg.RemoteURL != "" {
		wsURL = m.cfg.RemoteURL
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Headless(true).Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn("browser: ignore cert errors failed", "error", err)
	}
	return b, nil
}

func (m *RodDriver) recycle() error {
	log := m.cfg.Logger
	log.Info("browser: recycling", "uptime", time.Since(m.startAt))

	if err := m.cleanupLocked(); err != nil {
		log.Warn("browser: cleanup during recycle", "error", err)
	}

	b, err := m.launch()
	if err != nil {
		return fmt.Errorf("browser: relaunch: %w", err)
	}
	m.browser = b
	m.startAt = time.Now()
	log.Info("browser: recycled successfully")
	return nil
}

func (m *RodDriver) cleanupLocked() error {
	if m.browser != nil {
		m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	return nil
}

func (m *RodDriver) monitorLoop(ctx context.Context) {
	log := m.cfg.Logger
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.RLock()
			closed, startAt, b := m.closed, m.startAt, m.browser
			m.mu.RUnlock()
			if closed || b == nil {
				return
			}

			if time.Since(startAt) > m.cfg.RecycleInterval {
				log.Info("browser: recycle interval reached")
				m.mu.Lock()
				if err := m.recycle(); err != nil {
					log.Error("browser: recycle failed", "error", err)
				}
				m.mu.Unlock()
				continue
			}

			heap, err := jsHeapUsage(b)
			if err != nil {
				log.Debug("browser: heap check failed", "error", err)
				continue
			}
			if heap > m.cfg.MemoryLimit {
				log.Info("browser: memory limit exceeded", "used", heap, "limit", m.cfg.MemoryLimit)
				m.mu.Lock()
				if err := m.recycle(); err != nil {
					log.Error("browser: recycle failed", "error", err)
				}
				m.mu.Unlock()
			}
		}
	}
}

func jsHeapUsage(b *rod.Browser) (int64, error) {
	pages, err := b.Pages()
	if err != nil || len(pages) == 0 {
		return 0, fmt.Errorf("browser: no pages for heap check")
	}
	res, err := pages[0].Eval(`() => performance.memory ? performance.memory.usedJSHeapSize : 0`)
	if err != nil {
		return 0, err
	}
	return int64(res.Value.Int()), nil
}
