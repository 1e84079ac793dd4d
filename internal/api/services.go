package api

import (
	"context"

	"github.com/listenupapp/bookclub-server/internal/service"
)

// Pinger reports whether a backing database is reachable. *sql.DB
// satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Services groups the business services used by the API server.
type Services struct {
	Books     *service.BookService
	Reviews   *service.ReviewService
	Bookmarks *service.BookmarkService
	Users     *service.UserService
	Database  Pinger
}
