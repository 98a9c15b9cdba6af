// Package di provides dependency injection configuration for the diary server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/diary-server/internal/auth"
	"github.com/listenupapp/diary-server/internal/config"
	"github.com/listenupapp/diary-server/internal/di/providers"
	"github.com/listenupapp/diary-server/internal/service"
	"github.com/listenupapp/diary-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSessionState)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideValidator)

	// Business services
	do.Provide(injector, providers.ProvideSessionService)
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideTagService)
	do.Provide(injector, providers.ProvideEntryService)
	do.Provide(injector, providers.ProvideSearchService)
	do.Provide(injector, providers.ProvideHistoryService)

	// Workers
	do.Provide(injector, providers.ProvideSessionCleanupJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// Storage is opened before anything that uses it, so a bad data path fails
// here rather than on the first request.
func Bootstrap(injector *do.RootScope) error {
	for _, invoke := range []func(do.Injector) error{
		invokeAs[*config.Config],
		invokeAs[*providers.LoggerHandle],
		invokeAs[providers.AuthKey],
		invokeAs[*providers.StoreHandle],
		invokeAs[*providers.SessionStateHandle],
		invokeAs[*providers.SearchIndexHandle],
		invokeAs[*auth.TokenService],
		invokeAs[*validation.Validator],
		invokeAs[*service.SessionService],
		invokeAs[*service.AuthService],
		invokeAs[*service.TagService],
		invokeAs[*service.EntryService],
		invokeAs[*service.SearchService],
		invokeAs[*service.HistoryService],
		invokeAs[*providers.SessionCleanupJob],
	} {
		if err := invoke(injector); err != nil {
			return err
		}
	}

	providers.TriggerSearchReindexIfNeeded(injector)

	// Last, so nothing is served before the index and closure are ready.
	return invokeAs[*providers.HTTPServerHandle](injector)
}

func invokeAs[T any](i do.Injector) error {
	_, err := do.Invoke[T](i)
	return err
}
