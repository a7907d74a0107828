// File: internal/handlers/handlers.go
package handlers

import (
	"time"

	"account-service/internal/config"
	"account-service/internal/core"
)

type Handlers struct {
	app     *config.Application
	service core.UserService
	images  core.ImageStore
}

func New(app *config.Application) *Handlers {
	return &Handlers{app: app, service: app.Users, images: app.Images}
}

var startTime = time.Now()
