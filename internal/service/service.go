// Package service orchestrates BookClub use cases on top of the store and
// the write pipeline. Services translate store failures into domain errors
// and enforce who may touch what.
package service

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/listenupapp/bookclub-server/internal/clock"
	"github.com/listenupapp/bookclub-server/internal/domain"
	domainerrors "github.com/listenupapp/bookclub-server/internal/errors"
	"github.com/listenupapp/bookclub-server/internal/notify"
	"github.com/listenupapp/bookclub-server/internal/store"
	"github.com/listenupapp/bookclub-server/internal/validation"
)

// Messages surfaced to API clients.
const (
	msgAccessDenied   = "Access Denied."
	msgUnauthorized   = "Full authentication is required to access this resource."
	msgDuplicateMark  = "You have already bookmarked this book."
	msgClaimsMissing  = "cannot establish identity"
	msgNotInCatalog   = "This book does not exist in the catalog."
	msgBadCatalogLink = "This value is not a valid catalog reference."
)

// Deps holds the collaborators shared by the write services.
type Deps struct {
	Store     store.Store
	Publisher notify.Publisher
	Topics    *notify.Topics
	Validator *validation.Validator
	Clock     clock.Clock
	Logger    *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Publisher == nil {
		d.Publisher = notify.Nop
	}
	if d.Topics == nil {
		d.Topics = notify.NewTopics("http://localhost")
	}
	if d.Validator == nil {
		d.Validator = validation.New()
	}
	if d.Clock == nil {
		d.Clock = clock.System{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return d
}

// SystemActor performs maintenance writes from the command line.
var SystemActor = &domain.User{Email: "system@bookclub.local", FirstName: "System", Admin: true}

func requireActor(actor *domain.User) error {
	if actor == nil {
		return domainerrors.Unauthorized(msgUnauthorized)
	}
	return nil
}

func requireAdmin(actor *domain.User) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return domainerrors.Forbidden(msgAccessDenied)
	}
	return nil
}

// fromStore maps store errors to domain errors. what names the resource in
// not-found messages.
func fromStore(err error, what string) error {
	if err == nil {
		return nil
	}
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	switch {
	case store.IsNotFound(err):
		return domainerrors.NotFoundf("%s not found", what).WithCause(err)
	case store.IsAlreadyExists(err):
		return domainerrors.AlreadyExists(what + " already exists").WithCause(err)
	case errors.Is(err, store.ErrInvalidInput):
		return domainerrors.BadRequest(err.Error())
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}
