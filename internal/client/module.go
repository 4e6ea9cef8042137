package client

import (
	"context"
	"fmt"
	"time"

	"github.com/wandergram/wanderchat/internal/api"
	"github.com/wandergram/wanderchat/internal/bus"
	"github.com/wandergram/wanderchat/internal/composer"
	"github.com/wandergram/wanderchat/internal/config"
	"github.com/wandergram/wanderchat/internal/conversation"
	"github.com/wandergram/wanderchat/internal/directory"
	"github.com/wandergram/wanderchat/internal/hub"
	"github.com/wandergram/wanderchat/internal/lock"
	"github.com/wandergram/wanderchat/internal/logging"
	"github.com/wandergram/wanderchat/internal/profile"
	"github.com/wandergram/wanderchat/internal/status"
	"github.com/wandergram/wanderchat/internal/tui"
	"github.com/wandergram/wanderchat/internal/upload"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved startup configuration passed to the fx module.
type Params struct {
	ProfileName string
	// Token, when set, is persisted for the profile before startup proceeds
	// (the -token flag). Otherwise the stored token is used.
	Token string
}

// Module returns the fx module for the client, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("client",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideToken,
			provideAPIClient,
			provideIdentity,
			provideDirectory,
			provideStore,
			provideEngine,
			provideUploader,
			provideConn,
			provideReconnector,
			provideComposer,
			provideApp,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig() *config.Config {
	return config.LoadOrDefault(profile.ConfigPath())
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.ProfileName), p.ProfileName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	// One live duplex connection per profile; a second instance must not dial.
	l, err := lock.Acquire(profile.Dir(p.ProfileName))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideToken(p Params) (*profile.Token, error) {
	if p.Token != "" {
		if err := profile.SaveToken(p.ProfileName, p.Token, time.Time{}); err != nil {
			return nil, fmt.Errorf("persist token: %w", err)
		}
	}
	tok, err := profile.LoadToken(p.ProfileName)
	if err != nil {
		return nil, fmt.Errorf("no usable auth token for profile %q (pass -token once to store one): %w", p.ProfileName, err)
	}
	return tok, nil
}

func provideAPIClient(cfg *config.Config, tok *profile.Token, logger *zap.Logger) *api.Client {
	return api.NewClient(cfg.APIBaseURL, func() string { return tok.Value }, logger)
}

func provideIdentity(p Params) *profile.Identity {
	return profile.NewIdentity(p.ProfileName)
}

func provideDirectory(c *api.Client, logger *zap.Logger) *directory.Directory {
	return directory.New(c, logger)
}

func provideStore(c *api.Client, b *bus.Bus, logger *zap.Logger) *conversation.Store {
	return conversation.NewStore(c.Conversation, b, logger)
}

func provideEngine(store *conversation.Store, b *bus.Bus, logger *zap.Logger) *conversation.Engine {
	return conversation.NewEngine(store, b, logger)
}

func provideUploader(cfg *config.Config, logger *zap.Logger) *upload.Uploader {
	return upload.New(cfg.AssetHost, cfg.UploadPreset, cfg.UploadFolder, logger)
}

func provideConn(cfg *config.Config, tok *profile.Token, m *status.Machine, b *bus.Bus, logger *zap.Logger) *hub.Conn {
	return hub.NewConn(cfg.HubURL, func() string { return tok.Value }, m, b, logger)
}

func provideReconnector(conn *hub.Conn, m *status.Machine, b *bus.Bus, logger *zap.Logger) *hub.Reconnector {
	return hub.NewReconnector(conn, m, b, logger)
}

func provideComposer(m *status.Machine, store *conversation.Store, conn *hub.Conn, up *upload.Uploader, id *profile.Identity, logger *zap.Logger) *composer.Composer {
	return composer.New(m, store, conn, up, id.UserID, logger)
}

func provideApp(b *bus.Bus, m *status.Machine, dir *directory.Directory, store *conversation.Store, comp *composer.Composer, id *profile.Identity, logger *zap.Logger) *tui.App {
	return tui.NewApp(b, m, dir, store, comp, id, logger)
}

func registerLifecycle(lc fx.Lifecycle, lk *lock.Lock, c *api.Client, id *profile.Identity, engine *conversation.Engine, rec *hub.Reconnector, conn *hub.Conn, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			engine.Start(context.Background())
			rec.Start(context.Background())

			go func() {
				if err := id.Resolve(context.Background(), c); err != nil {
					logger.Warn("identity resolution failed, sends stay blocked", zap.Error(err))
				}
			}()

			go rec.Connect(context.Background())
			return nil
		},
		OnStop: func(_ context.Context) error {
			rec.Stop()
			engine.Stop()
			conn.Disconnect()
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing profile lock", zap.Error(err))
			}
			logger.Info("client stopped")
			return nil
		},
	})
}
