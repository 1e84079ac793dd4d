// Package pipeline runs the write path shared by every mutable resource.
//
// A Save resolves owner-controlled fields, runs an optional guard,
// persists, optionally mirrors the resource on the identity provider, and
// finally publishes a change notification. Delete removes the resource and
// publishes a deletion marker to the topics the resource was addressable
// under. Steps run strictly in that order; once the store has committed,
// the remaining steps run to completion even if the caller goes away.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/listenupapp/bookclub-server/internal/clock"
	"github.com/listenupapp/bookclub-server/internal/domain"
	domainerrors "github.com/listenupapp/bookclub-server/internal/errors"
	"github.com/listenupapp/bookclub-server/internal/id"
	"github.com/listenupapp/bookclub-server/internal/idp"
	"github.com/listenupapp/bookclub-server/internal/notify"
)

// Store persists resources of one kind.
type Store[T Resource] interface {
	Save(ctx context.Context, resource T, op Operation) error
	Remove(ctx context.Context, resource T) error
}

// StoreFuncs adapts per-kind store methods to Store.
type StoreFuncs[T Resource] struct {
	Create func(context.Context, T) error
	Update func(context.Context, T) error
	Delete func(context.Context, string) error
}

// Save calls Create or Update depending on op.
func (s StoreFuncs[T]) Save(ctx context.Context, resource T, op Operation) error {
	if op == Create {
		return s.Create(ctx, resource)
	}
	return s.Update(ctx, resource)
}

// Remove calls Delete with the resource id.
func (s StoreFuncs[T]) Remove(ctx context.Context, resource T) error {
	return s.Delete(ctx, resource.Meta().ID)
}

// Addressing describes where a resource kind is published.
type Addressing[T Resource] struct {
	// Topics returns every URI the resource is addressable under.
	Topics func(T) []string
	// Type is the "@type" of notification payloads.
	Type any
}

// OwnershipFunc sets or preserves owner-controlled fields. On Create it
// receives the acting user and the current instant; on Replace it copies
// the fields from op.Previous.
type OwnershipFunc[T Resource] func(actor *domain.User, candidate T, op Op[T], now time.Time)

// GuardFunc rejects a candidate after ownership resolution and before
// persistence.
type GuardFunc[T Resource] func(ctx context.Context, actor *domain.User, candidate T, op Op[T]) error

// ResourceHandler mirrors resources on the identity provider.
type ResourceHandler interface {
	Create(ctx context.Context, res idp.Resource, owner *domain.User, opts idp.CreateOptions) error
}

// Sync configures the external sync step. It runs on Create only.
type Sync[T Resource] struct {
	Handler ResourceHandler
	// Enrolled decides from the owner's email whether to mirror.
	Enrolled func(email string) bool
	// Describe maps the persisted resource to its provider description.
	Describe func(T) idp.Resource
	Options  idp.CreateOptions
}

// Pipeline is the write path of one resource kind.
type Pipeline[T Resource] struct {
	kind       string
	store      Store[T]
	addressing Addressing[T]
	publisher  notify.Publisher
	clock      clock.Clock
	newID      func() (string, error)
	ownership  OwnershipFunc[T]
	guard      GuardFunc[T]
	sync       *Sync[T]
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option[T Resource] func(*Pipeline[T])

// WithClock sets the clock used for owner-controlled instants and timestamps.
func WithClock[T Resource](c clock.Clock) Option[T] {
	return func(p *Pipeline[T]) { p.clock = c }
}

// WithIDGenerator sets the identity generator for new resources.
func WithIDGenerator[T Resource](fn func() (string, error)) Option[T] {
	return func(p *Pipeline[T]) { p.newID = fn }
}

// WithOwnership sets the owner-controlled field resolver.
func WithOwnership[T Resource](fn OwnershipFunc[T]) Option[T] {
	return func(p *Pipeline[T]) { p.ownership = fn }
}

// WithGuard sets the pre-persistence guard.
func WithGuard[T Resource](fn GuardFunc[T]) Option[T] {
	return func(p *Pipeline[T]) { p.guard = fn }
}

// WithSync enables the external sync step.
func WithSync[T Resource](s Sync[T]) Option[T] {
	return func(p *Pipeline[T]) { p.sync = &s }
}

// WithLogger sets the logger.
func WithLogger[T Resource](l *slog.Logger) Option[T] {
	return func(p *Pipeline[T]) { p.logger = l }
}

// New creates the pipeline of one resource kind, e.g. "review".
func New[T Resource](kind string, store Store[T], addressing Addressing[T], publisher notify.Publisher, opts ...Option[T]) *Pipeline[T] {
	p := &Pipeline[T]{
		kind:       kind,
		store:      store,
		addressing: addressing,
		publisher:  publisher,
		clock:      clock.System{},
		newID:      id.NewResourceID,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.publisher == nil {
		p.publisher = notify.Nop
	}
	p.logger = p.logger.With("kind", kind)
	return p
}

func unauthenticated() error {
	return domainerrors.Unauthorized("Full authentication is required to access this resource.")
}

// Save creates or fully replaces candidate on behalf of actor.
//
// On an external sync failure the persisted resource is returned together
// with an EXTERNAL_SYNC_FAILED error and no notification is published.
func (p *Pipeline[T]) Save(ctx context.Context, actor *domain.User, candidate T, op Op[T]) (result *Result[T], err error) {
	started := time.Now()
	ctx, span := startSpan(ctx, p.kind, op.Kind)
	trail := Trail{Start}
	defer func() {
		endSpan(span, trail.Last(), err)
		operationDuration.WithLabelValues(p.kind, op.Kind.String()).Observe(time.Since(started).Seconds())
	}()

	if actor == nil {
		operationsTotal.WithLabelValues(p.kind, op.Kind.String(), outcomeRejected).Inc()
		return nil, unauthenticated()
	}

	// Step A: owner-controlled fields and bookkeeping.
	now := p.clock.Now()
	if p.ownership != nil {
		p.ownership(actor, candidate, op, now)
	}
	meta := candidate.Meta()
	switch op.Kind {
	case Create:
		if meta.IsNew() {
			newID, err := p.newID()
			if err != nil {
				operationsTotal.WithLabelValues(p.kind, op.Kind.String(), outcomePersistFailed).Inc()
				return nil, fmt.Errorf("generate %s id: %w", p.kind, err)
			}
			meta.ID = newID
		}
		meta.InitTimestamps(now)
	case Replace:
		if isNil(op.Previous) {
			operationsTotal.WithLabelValues(p.kind, op.Kind.String(), outcomeRejected).Inc()
			return nil, fmt.Errorf("replace %s: missing previous snapshot", p.kind)
		}
		prev := op.Previous.Meta()
		meta.ID = prev.ID
		meta.CreatedAt = prev.CreatedAt
		meta.Touch(now)
	default:
		return nil, fmt.Errorf("%s: unsupported operation %s", p.kind, op.Kind)
	}
	trail.enter(FieldsResolved)

	if p.guard != nil {
		if err := p.guard(ctx, actor, candidate, op); err != nil {
			operationsTotal.WithLabelValues(p.kind, op.Kind.String(), outcomeRejected).Inc()
			return nil, err
		}
	}

	// Step B: persistence.
	if err := p.store.Save(ctx, candidate, op.Kind); err != nil {
		operationsTotal.WithLabelValues(p.kind, op.Kind.String(), outcomePersistFailed).Inc()
		return nil, fmt.Errorf("%s %s: %w", op.Kind, p.kind, err)
	}
	trail.enter(Persisted)
	p.logger.Debug("resource persisted", "id", meta.ID, "operation", op.Kind.String())

	// The local write stands from here on.
	ctx = context.WithoutCancel(ctx)
	result = &Result[T]{Resource: candidate, Sync: SyncSkipped}

	// Step C: external sync, creation only.
	result.Sync, err = p.syncCreated(ctx, actor, candidate, op)
	trail.enter(result.Sync)
	result.State = trail.Last()
	result.Trail = trail
	if err != nil {
		operationsTotal.WithLabelValues(p.kind, op.Kind.String(), outcomeSyncFailed).Inc()
		return result, err
	}

	// Step D: notification.
	payload, err := notify.Document(candidate.IRI(), p.addressing.Type, candidate)
	if err != nil {
		p.logger.Warn("failed to encode notification", "id", meta.ID, "error", err)
		publishFailures.WithLabelValues(p.kind).Inc()
	} else {
		result.Published = p.publish(ctx, p.addressing.Topics(candidate), payload, meta.ID)
	}
	if result.Published {
		trail.enter(NotificationSent)
	}

	trail.enter(Done)
	result.State = trail.Last()
	result.Trail = trail
	operationsTotal.WithLabelValues(p.kind, op.Kind.String(), outcomeOK).Inc()
	return result, nil
}

// syncCreated runs Step C and reports the sync state.
func (p *Pipeline[T]) syncCreated(ctx context.Context, actor *domain.User, candidate T, op Op[T]) (State, error) {
	if op.Kind != Create || p.sync == nil {
		return SyncSkipped, nil
	}
	if !p.sync.Enrolled(actor.Email) {
		syncTotal.WithLabelValues(p.kind, SyncSkipped.String()).Inc()
		p.logger.Debug("external sync skipped", "id", candidate.Meta().ID, "reason", "owner not enrolled")
		return SyncSkipped, nil
	}

	resourceID := candidate.Meta().ID
	if err := p.sync.Handler.Create(ctx, p.sync.Describe(candidate), actor, p.sync.Options); err != nil {
		syncTotal.WithLabelValues(p.kind, SyncFailed.String()).Inc()
		p.logger.Error("external sync failed",
			"id", resourceID,
			"owner", actor.Email,
			"error", err,
		)
		return SyncFailed, domainerrors.
			ExternalSyncFailed(fmt.Sprintf("%s %s was saved but could not be mirrored to the identity provider", p.kind, resourceID), err).
			WithDetails(map[string]string{"id": resourceID})
	}

	syncTotal.WithLabelValues(p.kind, Synced.String()).Inc()
	return Synced, nil
}

// publish delivers a notification. Failures are logged and counted, never
// returned.
func (p *Pipeline[T]) publish(ctx context.Context, topics []string, payload []byte, resourceID string) bool {
	if err := p.publisher.Publish(ctx, topics, payload); err != nil {
		publishFailures.WithLabelValues(p.kind).Inc()
		p.logger.Warn("failed to publish notification",
			"id", resourceID,
			"topics", topics,
			"error", err,
		)
		return false
	}
	return true
}

// Delete removes resource on behalf of actor and publishes a deletion
// marker to the topics computed before removal.
func (p *Pipeline[T]) Delete(ctx context.Context, actor *domain.User, resource T) (result *Result[T], err error) {
	started := time.Now()
	ctx, span := startSpan(ctx, p.kind, Remove)
	trail := Trail{Start}
	defer func() {
		endSpan(span, trail.Last(), err)
		operationDuration.WithLabelValues(p.kind, Remove.String()).Observe(time.Since(started).Seconds())
	}()

	if actor == nil {
		operationsTotal.WithLabelValues(p.kind, Remove.String(), outcomeRejected).Inc()
		return nil, unauthenticated()
	}

	resourceID := resource.Meta().ID
	topics := p.addressing.Topics(resource)
	iri := resource.IRI()
	trail.enter(FieldsResolved)

	if err := p.store.Remove(ctx, resource); err != nil {
		operationsTotal.WithLabelValues(p.kind, Remove.String(), outcomePersistFailed).Inc()
		return nil, fmt.Errorf("remove %s: %w", p.kind, err)
	}
	trail.enter(Persisted)
	p.logger.Debug("resource removed", "id", resourceID)

	ctx = context.WithoutCancel(ctx)
	result = &Result[T]{Resource: resource, Sync: SyncSkipped}
	trail.enter(SyncSkipped)

	payload, err := notify.Marker(iri, p.addressing.Type)
	if err != nil {
		p.logger.Warn("failed to encode deletion marker", "id", resourceID, "error", err)
		publishFailures.WithLabelValues(p.kind).Inc()
	} else {
		result.Published = p.publish(ctx, topics, payload, resourceID)
	}
	if result.Published {
		trail.enter(NotificationSent)
	}

	trail.enter(Done)
	result.State = trail.Last()
	result.Trail = trail
	operationsTotal.WithLabelValues(p.kind, Remove.String(), outcomeOK).Inc()
	return result, nil
}

// isNil reports whether v is a nil pointer or nil interface value.
func isNil[T any](v T) bool {
	rv := reflect.ValueOf(any(v))
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	default:
		return false
	}
}
