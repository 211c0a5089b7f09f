// Package core wires the versioned repositories into one service facade
// with logging, metrics, tracing, auditing and a read-through lookup cache.
package core

import (
	"context"
	"fmt"
	"time"

	"mdrcore/internal/infra/graph/memory"
	"mdrcore/internal/repository"
	"mdrcore/pkg/domain"
	"mdrcore/pkg/graph"
)

// UIDExistenceChecker answers whether a uid resolves to a live root of any
// entity type. The service validates cross-entity uid fields that travel
// inside edge metadata (for example collection exception uids on form
// references) through this interface rather than ad-hoc callbacks.
type UIDExistenceChecker interface {
	UIDExists(ctx context.Context, uid string) (bool, error)
}

type storeExistenceChecker struct {
	store graph.Store
}

func (c storeExistenceChecker) UIDExists(ctx context.Context, uid string) (bool, error) {
	var exists bool
	err := c.store.View(ctx, func(tx graph.Tx) error {
		root, ok := tx.GetRoot(uid)
		exists = ok && !root.Deleted
		return nil
	})
	return exists, err
}

// Service is the typed operation surface over the concept repositories.
type Service struct {
	store graph.Store

	forms       *repository.Repository[domain.Form]
	studyEvents *repository.Repository[domain.StudyEvent]
	conditions  *repository.Repository[domain.Condition]
	vendorAttrs *repository.Repository[domain.VendorAttribute]

	logger    Logger
	metrics   MetricsRecorder
	tracer    Tracer
	audit     AuditRecorder
	clock     Clock
	cache     Cache
	existence UIDExistenceChecker
	policy    domain.VersionPolicy
}

// ServiceOption customizes Service construction.
type ServiceOption func(*Service)

// WithLogger injects the logger.
func WithLogger(l Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetricsRecorder injects the metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer injects the tracer.
func WithTracer(t Tracer) ServiceOption {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithAuditRecorder injects the audit recorder.
func WithAuditRecorder(a AuditRecorder) ServiceOption {
	return func(s *Service) {
		if a != nil {
			s.audit = a
		}
	}
}

// WithClock injects the time source used for version edge timestamps and
// audit entries.
func WithClock(c Clock) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithCache injects the lookup cache.
func WithCache(c Cache) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithExistenceChecker overrides the cross-entity uid validator.
func WithExistenceChecker(c UIDExistenceChecker) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.existence = c
		}
	}
}

// WithVersionPolicy overrides the version numbering scheme of every
// repository built by the service.
func WithVersionPolicy(p domain.VersionPolicy) ServiceOption {
	return func(s *Service) {
		if p != nil {
			s.policy = p
		}
	}
}

// NewService constructs the facade over an existing graph store.
func NewService(store graph.Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		logger:  noopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		audit:   noopAudit{},
		clock:   ClockFunc(func() time.Time { return time.Now().UTC() }),
		cache:   noopCache{},
		policy:  domain.StandardVersionPolicy{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.existence == nil {
		s.existence = storeExistenceChecker{store: store}
	}
	now := s.clock.Now
	s.forms = repository.New(store, repository.FormDef(),
		repository.WithClock[domain.Form](now), repository.WithVersionPolicy[domain.Form](s.policy))
	s.studyEvents = repository.New(store, repository.StudyEventDef(),
		repository.WithClock[domain.StudyEvent](now), repository.WithVersionPolicy[domain.StudyEvent](s.policy))
	s.conditions = repository.New(store, repository.ConditionDef(),
		repository.WithClock[domain.Condition](now), repository.WithVersionPolicy[domain.Condition](s.policy))
	s.vendorAttrs = repository.New(store, repository.VendorAttributeDef(),
		repository.WithClock[domain.VendorAttribute](now), repository.WithVersionPolicy[domain.VendorAttribute](s.policy))
	return s
}

// NewInMemoryService constructs the facade over a fresh in-memory store
// with the given rules engine (default rules when nil).
func NewInMemoryService(engine *domain.RulesEngine, opts ...ServiceOption) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), opts...)
}

// Store exposes the underlying graph store for maintenance operations.
func (s *Service) Store() graph.Store { return s.store }

// Forms exposes the form repository for callers needing unwrapped access.
func (s *Service) Forms() *repository.Repository[domain.Form] { return s.forms }

// StudyEvents exposes the study event repository.
func (s *Service) StudyEvents() *repository.Repository[domain.StudyEvent] { return s.studyEvents }

// Conditions exposes the condition repository.
func (s *Service) Conditions() *repository.Repository[domain.Condition] { return s.conditions }

// VendorAttributes exposes the vendor attribute repository.
func (s *Service) VendorAttributes() *repository.Repository[domain.VendorAttribute] {
	return s.vendorAttrs
}

// EnsureLibrary creates the library if it does not exist yet.
func (s *Service) EnsureLibrary(ctx context.Context, lib domain.Library) error {
	return s.run(ctx, "ensure_library", "", "", func(ctx context.Context) (string, error) {
		_, err := s.store.RunInTransaction(ctx, func(tx graph.Tx) error {
			return tx.EnsureLibrary(lib)
		})
		return lib.Name, err
	})
}

// PruneOrphanValues removes value nodes unreachable from any version or
// reference edge. Maintenance only; safe to run at any time.
func (s *Service) PruneOrphanValues(ctx context.Context) (int, error) {
	var pruned int
	err := s.run(ctx, "prune_orphan_values", "", "", func(ctx context.Context) (string, error) {
		var err error
		pruned, err = s.store.PruneOrphanValues(ctx)
		return "", err
	})
	return pruned, err
}

// run is the shared operation wrapper: one trace span, one metrics
// observation, one audit entry and one log line per service call.
func (s *Service) run(ctx context.Context, op string, entity domain.EntityType, actor string, fn func(ctx context.Context) (string, error)) error {
	ctx, span := s.tracer.Start(ctx, op)
	start := time.Now()
	entityID, err := fn(ctx)
	duration := time.Since(start)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)

	entry := AuditEntry{
		ID:        newAuditID(),
		Operation: op,
		Status:    AuditStatusSuccess,
		Entity:    string(entity),
		EntityID:  entityID,
		Actor:     actor,
		CreatedAt: s.clock.Now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
		s.logger.Error("operation failed", "operation", op, "entity_id", entityID, "error", err)
	} else {
		s.logger.Debug("operation complete", "operation", op, "entity_id", entityID, "duration_ms", float64(duration)/float64(time.Millisecond))
	}
	s.audit.Record(ctx, entry)
	return err
}

func cacheKey(entity domain.EntityType, uid string) string {
	return string(entity) + "/" + uid
}

// Generic operation bodies shared by the typed per-entity methods.

func createItem[A domain.Aggregate](ctx context.Context, s *Service, op string, repo *repository.Repository[A], agg A) (A, error) {
	var out A
	err := s.run(ctx, op, agg.EntityType(), agg.Item().AuthorID, func(ctx context.Context) (string, error) {
		var err error
		out, err = repo.Create(ctx, agg)
		if err != nil {
			return agg.Item().UID, err
		}
		return out.Item().UID, nil
	})
	if err != nil {
		var zero A
		return zero, err
	}
	return out, nil
}

func getItem[A domain.Aggregate](ctx context.Context, s *Service, op string, repo *repository.Repository[A], entity domain.EntityType, uid string, opts ...repository.FindOption) (A, error) {
	var out A
	cacheable := len(opts) == 0
	if cacheable {
		if cached, ok := s.cache.Get(cacheKey(entity, uid)); ok {
			if agg, ok := cached.(A); ok {
				return agg, nil
			}
		}
	}
	err := s.run(ctx, op, entity, "", func(ctx context.Context) (string, error) {
		var err error
		out, err = repo.FindByUID(ctx, uid, opts...)
		return uid, err
	})
	if err != nil {
		var zero A
		return zero, err
	}
	if cacheable {
		s.cache.Set(cacheKey(entity, uid), out)
	}
	return out, nil
}

func saveItem[A domain.Aggregate](ctx context.Context, s *Service, op string, repo *repository.Repository[A], agg A) (A, error) {
	var out A
	err := s.run(ctx, op, agg.EntityType(), agg.Item().AuthorID, func(ctx context.Context) (string, error) {
		var err error
		out, err = repo.Save(ctx, agg)
		return agg.Item().UID, err
	})
	if err != nil {
		var zero A
		return zero, err
	}
	s.cache.Invalidate(cacheKey(agg.EntityType(), agg.Item().UID))
	return out, nil
}

func transitionItem[A domain.Aggregate](
	ctx context.Context,
	s *Service,
	op string,
	entity domain.EntityType,
	uid, actor, changeDescription string,
	step func(ctx context.Context, uid, actor, changeDescription string) (A, error),
) (A, error) {
	var out A
	err := s.run(ctx, op, entity, actor, func(ctx context.Context) (string, error) {
		var err error
		out, err = step(ctx, uid, actor, changeDescription)
		return uid, err
	})
	if err != nil {
		var zero A
		return zero, err
	}
	s.cache.Invalidate(cacheKey(entity, uid))
	return out, nil
}

func deleteItem[A domain.Aggregate](ctx context.Context, s *Service, op string, repo *repository.Repository[A], entity domain.EntityType, uid, actor string) error {
	err := s.run(ctx, op, entity, actor, func(ctx context.Context) (string, error) {
		return uid, repo.SoftDelete(ctx, uid)
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(cacheKey(entity, uid))
	return nil
}

func listItems[A domain.Aggregate](ctx context.Context, s *Service, op string, repo *repository.Repository[A], entity domain.EntityType) ([]A, error) {
	var out []A
	err := s.run(ctx, op, entity, "", func(ctx context.Context) (string, error) {
		var err error
		out, err = repo.List(ctx)
		return "", err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func itemHistory[A domain.Aggregate](ctx context.Context, s *Service, op string, repo *repository.Repository[A], entity domain.EntityType, uid string) ([]domain.VersionRecord, error) {
	var out []domain.VersionRecord
	err := s.run(ctx, op, entity, "", func(ctx context.Context) (string, error) {
		var err error
		out, err = repo.VersionHistory(ctx, uid)
		return uid, err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// validateFormRefs checks the uid fields carried inside form reference
// metadata. Form target uids themselves are validated by the repository
// when the reference edges are written.
func (s *Service) validateFormRefs(ctx context.Context, refs []domain.FormRef) error {
	for _, ref := range refs {
		if ref.CollectionExceptionUID == "" {
			continue
		}
		ok, err := s.existence.UIDExists(ctx, ref.CollectionExceptionUID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.BusinessRuleError{Msg: fmt.Sprintf("Referenced item %s does not exist", ref.CollectionExceptionUID)}
		}
	}
	return nil
}
