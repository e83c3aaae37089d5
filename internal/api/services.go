package api

import (
	"github.com/inkwell/tagstore/internal/service"
)

// Services groups the business logic used by the API server.
type Services struct {
	Tag     *service.TagService
	Watcher *service.TagWatcher
}
