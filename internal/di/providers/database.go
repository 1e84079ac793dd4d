package providers

import (
	"context"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/listenupapp/bookclub-server/internal/config"
	"github.com/listenupapp/bookclub-server/internal/logger"
	"github.com/listenupapp/bookclub-server/internal/notify"
	"github.com/listenupapp/bookclub-server/internal/sse"
	"github.com/listenupapp/bookclub-server/internal/store/sqlite"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the in-process notification hub.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Component("sse"))

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// ProvidePublisher provides the notification publisher: the in-process
// hub, plus the external hub when one is configured.
func ProvidePublisher(i do.Injector) (notify.Publisher, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	if cfg.Notify.HubURL == "" {
		return sseHandle.Manager, nil
	}

	log.Info("Publishing notifications to external hub", "hub_url", cfg.Notify.HubURL)
	return notify.Fanout{
		sseHandle.Manager,
		notify.NewHubPublisher(cfg.Notify.HubURL, []byte(cfg.Notify.HubJWTSecret), 0),
	}, nil
}

// ProvideTopics provides the topic URI builder.
func ProvideTopics(i do.Injector) (*notify.Topics, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return notify.NewTopics(cfg.Notify.TopicBaseURL), nil
}

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the database store. Opening it applies pending
// migrations.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o750); err != nil {
		return nil, err
	}

	db, err := sqlite.Open(cfg.Database.Path, log.Component("store"))
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", cfg.Database.Path)

	return &StoreHandle{Store: db}, nil
}
