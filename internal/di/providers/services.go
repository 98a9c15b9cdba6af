package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/listenupapp/diary-server/internal/auth"
	"github.com/listenupapp/diary-server/internal/config"
	"github.com/listenupapp/diary-server/internal/service"
	"github.com/listenupapp/diary-server/internal/validation"
)

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideSessionService provides the session management service.
func ProvideSessionService(i do.Injector) (*service.SessionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	stateHandle := do.MustInvoke[*SessionStateHandle](i)
	log := do.MustInvoke[*LoggerHandle](i)

	return service.NewSessionService(storeHandle.Store, tokenService, stateHandle.Store, log.Logger.Logger), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	sessionService := do.MustInvoke[*service.SessionService](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*LoggerHandle](i)

	return service.NewAuthService(
		storeHandle.Store,
		tokenService,
		sessionService,
		v,
		cfg.Auth.OpenRegistration,
		log.Logger.Logger,
	), nil
}

// ProvideTagService provides the tag service and applies the configured
// closure mode.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*LoggerHandle](i)

	svc := service.NewTagService(storeHandle.Store, indexHandle.SearchIndex, log.Logger.Logger)

	if err := svc.SetClosureEnabled(context.Background(), cfg.Search.ClosureEnabled); err != nil {
		// Searches fall back to live expansion.
		log.Error("Failed to apply tag closure setting", "enabled", cfg.Search.ClosureEnabled, "error", err)
	}

	return svc, nil
}

// ProvideEntryService provides the entry service.
func ProvideEntryService(i do.Injector) (*service.EntryService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*LoggerHandle](i)

	return service.NewEntryService(storeHandle.Store, indexHandle.SearchIndex, log.Logger.Logger), nil
}

// ProvideHistoryService provides the search history service.
func ProvideHistoryService(i do.Injector) (*service.HistoryService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*LoggerHandle](i)

	return service.NewHistoryService(storeHandle.Store, log.Logger.Logger), nil
}
