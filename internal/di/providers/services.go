package providers

import (
	"github.com/samber/do/v2"

	"github.com/inkwell/tagstore/internal/logger"
	"github.com/inkwell/tagstore/internal/service"
)

// ProvideTagService provides the tag service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTagService(storeHandle.Store, log.Component("tags")), nil
}

// ProvideTagWatcher provides the live query views over the store.
func ProvideTagWatcher(i do.Injector) (*service.TagWatcher, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	hub := do.MustInvoke[*HubHandle](i)

	return service.NewTagWatcher(storeHandle.Store, hub.Hub), nil
}
