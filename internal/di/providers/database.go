package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/diary-server/internal/config"
	"github.com/listenupapp/diary-server/internal/sessionstate"
	"github.com/listenupapp/diary-server/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the SQLite database and applies the schema.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*LoggerHandle](i)

	dbPath := cfg.Storage.DatabasePath()
	db, err := sqlite.Open(dbPath, log.Logger.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", dbPath)

	return &StoreHandle{Store: db}, nil
}

// SessionStateHandle wraps the Badger session state store.
type SessionStateHandle struct {
	*sessionstate.Store
}

// Shutdown implements do.Shutdownable.
func (h *SessionStateHandle) Shutdown() error {
	return h.Close()
}

// ProvideSessionState opens the per-session state store. Keys live as long
// as a refresh token, so state never outlives the session it belongs to.
func ProvideSessionState(i do.Injector) (*SessionStateHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*LoggerHandle](i)

	path := cfg.Storage.SessionStatePath()
	st, err := sessionstate.Open(sessionstate.Options{
		Path:   path,
		TTL:    cfg.Auth.RefreshTokenDuration,
		Logger: log.Logger.Logger,
	})
	if err != nil {
		return nil, err
	}

	log.Info("Session state initialized", "path", path)

	return &SessionStateHandle{Store: st}, nil
}
