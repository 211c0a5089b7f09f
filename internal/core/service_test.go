package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"mdrcore/internal/repository"
	"mdrcore/pkg/domain"
)

type logLine struct {
	level string
	msg   string
}

type captureLogger struct {
	mu    sync.Mutex
	lines []logLine
}

func (l *captureLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, logLine{level: level, msg: msg})
}

func (l *captureLogger) Debug(msg string, _ ...any) { l.record("debug", msg) }
func (l *captureLogger) Info(msg string, _ ...any)  { l.record("info", msg) }
func (l *captureLogger) Warn(msg string, _ ...any)  { l.record("warn", msg) }
func (l *captureLogger) Error(msg string, _ ...any) { l.record("error", msg) }

type observation struct {
	operation string
	success   bool
}

type captureMetrics struct {
	mu           sync.Mutex
	observations []observation
}

func (m *captureMetrics) Observe(_ context.Context, operation string, success bool, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observations = append(m.observations, observation{operation: operation, success: success})
}

type captureTracer struct {
	mu    sync.Mutex
	spans []string
}

type captureSpan struct {
	tracer *captureTracer
}

func (captureSpan) End(error) {}

func (t *captureTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spans = append(t.spans, operation)
	return ctx, captureSpan{tracer: t}
}

func (t *captureTracer) count(operation string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	var n int
	for _, s := range t.spans {
		if s == operation {
			n++
		}
	}
	return n
}

type captureAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (a *captureAudit) Record(_ context.Context, entry AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

// tickingClock hands out strictly increasing instants.
type tickingClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newServiceEnv(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	base := []ServiceOption{WithClock(&tickingClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})}
	svc := NewInMemoryService(nil, append(base, opts...)...)
	if err := svc.EnsureLibrary(context.Background(), domain.Library{Name: "Sponsor", Editable: true}); err != nil {
		t.Fatalf("ensure library: %v", err)
	}
	return svc
}

func sampleForm(name string) domain.Form {
	f := domain.Form{Name: name, OID: "F." + name}
	f.Library = "Sponsor"
	f.AuthorID = "user-1"
	f.ChangeDescription = "initial draft"
	return f
}

func TestServiceObservabilityPerOperation(t *testing.T) {
	ctx := context.Background()
	logger := &captureLogger{}
	metrics := &captureMetrics{}
	tracer := &captureTracer{}
	audit := &captureAudit{}
	svc := newServiceEnv(t,
		WithLogger(logger),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
		WithAuditRecorder(audit),
	)

	form, err := svc.CreateForm(ctx, sampleForm("Vitals"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.GetForm(ctx, "OdmForm_000404"); err == nil {
		t.Fatal("expected miss")
	}

	if got := tracer.count("create_form"); got != 1 {
		t.Errorf("create_form spans %d", got)
	}
	if got := tracer.count("get_form"); got != 1 {
		t.Errorf("get_form spans %d", got)
	}

	metrics.mu.Lock()
	createObs, missObs := metrics.observations[len(metrics.observations)-2], metrics.observations[len(metrics.observations)-1]
	metrics.mu.Unlock()
	if createObs.operation != "create_form" || !createObs.success {
		t.Errorf("create observation %+v", createObs)
	}
	if missObs.operation != "get_form" || missObs.success {
		t.Errorf("miss observation %+v", missObs)
	}

	audit.mu.Lock()
	defer audit.mu.Unlock()
	var created, missed *AuditEntry
	seen := map[string]bool{}
	for i := range audit.entries {
		entry := &audit.entries[i]
		if entry.ID == "" || seen[entry.ID] {
			t.Errorf("audit id not unique: %+v", entry)
		}
		seen[entry.ID] = true
		switch entry.Operation {
		case "create_form":
			created = entry
		case "get_form":
			missed = entry
		}
	}
	if created == nil || created.Status != AuditStatusSuccess || created.EntityID != form.UID || created.Actor != "user-1" {
		t.Errorf("create audit %+v", created)
	}
	if missed == nil || missed.Status != AuditStatusError || missed.Error == "" {
		t.Errorf("miss audit %+v", missed)
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()
	var hasDebug, hasError bool
	for _, line := range logger.lines {
		if line.level == "debug" && line.msg == "operation complete" {
			hasDebug = true
		}
		if line.level == "error" && line.msg == "operation failed" {
			hasError = true
		}
	}
	if !hasDebug || !hasError {
		t.Errorf("log lines %+v", logger.lines)
	}
}

func TestServiceCacheReadThrough(t *testing.T) {
	ctx := context.Background()
	tracer := &captureTracer{}
	cache := NewMapCache()
	svc := newServiceEnv(t, WithTracer(tracer), WithCache(cache))

	form, err := svc.CreateForm(ctx, sampleForm("Vitals"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	first, err := svc.GetForm(ctx, form.UID)
	if err != nil {
		t.Fatalf("first get: %v", err)
	}
	second, err := svc.GetForm(ctx, form.UID)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if got := tracer.count("get_form"); got != 1 {
		t.Errorf("second lookup must come from cache, %d store reads", got)
	}
	if first.Name != second.Name || first.Version != second.Version {
		t.Errorf("cache returned a different aggregate: %+v vs %+v", first, second)
	}

	// Historical lookups bypass the cache entirely.
	if _, err := svc.GetForm(ctx, form.UID, repository.AtVersion(domain.MustParseVersion("0.1"))); err != nil {
		t.Fatalf("versioned get: %v", err)
	}
	if got := tracer.count("get_form"); got != 2 {
		t.Errorf("versioned lookup must hit the store, %d reads", got)
	}

	// Writes invalidate, so the next read observes the new content.
	first.Name = "Vital Signs"
	if _, err := svc.SaveForm(ctx, first); err != nil {
		t.Fatalf("save: %v", err)
	}
	reloaded, err := svc.GetForm(ctx, form.UID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Name != "Vital Signs" {
		t.Errorf("stale cache entry survived save: %q", reloaded.Name)
	}
	if got := tracer.count("get_form"); got != 3 {
		t.Errorf("post-save lookup must hit the store, %d reads", got)
	}
}

func TestRequiredNameRuleBlocksCommit(t *testing.T) {
	ctx := context.Background()
	svc := newServiceEnv(t)
	_, err := svc.CreateForm(ctx, sampleForm(""))
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected RuleViolationError, got %v", err)
	}
	if !strings.Contains(err.Error(), "Name is required") {
		t.Errorf("violation message %q", err)
	}
	forms, err := svc.ListForms(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(forms) != 0 {
		t.Errorf("blocked commit must leave no roots, got %+v", forms)
	}
}

func TestUniqueNameRuleBlocksDuplicates(t *testing.T) {
	ctx := context.Background()
	svc := newServiceEnv(t)
	if _, err := svc.CreateForm(ctx, sampleForm("Vitals")); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.CreateForm(ctx, sampleForm("Vitals"))
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected RuleViolationError, got %v", err)
	}
	var conflict domain.AlreadyExistsError
	if !errors.As(err, &conflict) {
		t.Fatalf("name collision must match AlreadyExistsError, got %v", err)
	}
	if conflict.Entity != domain.EntityForm || conflict.Property != "name" || conflict.Value != "Vitals" {
		t.Errorf("conflict %+v", conflict)
	}
	if !strings.Contains(err.Error(), `form with name "Vitals" already exists`) {
		t.Errorf("violation message %q", err)
	}

	// Editing the existing root under its own name stays legal.
	form, err := svc.GetForm(ctx, "OdmForm_000001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	form.OID = "F.VS.2"
	if _, err := svc.SaveForm(ctx, form); err != nil {
		t.Fatalf("self-save: %v", err)
	}
}

func TestStudyEventCollectionExceptionValidated(t *testing.T) {
	ctx := context.Background()
	svc := newServiceEnv(t)
	form, err := svc.CreateForm(ctx, sampleForm("Vitals"))
	if err != nil {
		t.Fatalf("create form: %v", err)
	}

	event := domain.StudyEvent{
		Name: "Baseline",
		OID:  "SE.Baseline",
		FormRefs: []domain.FormRef{{
			FormUID:                form.UID,
			OrderNumber:            1,
			CollectionExceptionUID: "OdmCondition_000404",
		}},
	}
	event.Library = "Sponsor"
	event.AuthorID = "user-1"
	event.ChangeDescription = "initial draft"

	_, err = svc.CreateStudyEvent(ctx, event)
	var ruleErr domain.BusinessRuleError
	if !errors.As(err, &ruleErr) || !strings.Contains(ruleErr.Msg, "OdmCondition_000404") {
		t.Fatalf("expected collection-exception rejection, got %v", err)
	}

	cond := domain.Condition{Name: "Fasting", OID: "C.Fasting"}
	cond.Library = "Sponsor"
	cond.AuthorID = "user-1"
	cond.ChangeDescription = "initial draft"
	created, err := svc.CreateCondition(ctx, cond)
	if err != nil {
		t.Fatalf("create condition: %v", err)
	}
	event.FormRefs[0].CollectionExceptionUID = created.UID
	if _, err := svc.CreateStudyEvent(ctx, event); err != nil {
		t.Fatalf("create study event: %v", err)
	}
}

func TestPruneOrphanValuesOnCleanStore(t *testing.T) {
	svc := newServiceEnv(t)
	if _, err := svc.CreateForm(context.Background(), sampleForm("Vitals")); err != nil {
		t.Fatalf("create: %v", err)
	}
	pruned, err := svc.PruneOrphanValues(context.Background())
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if pruned != 0 {
		t.Errorf("nothing should be orphaned, pruned %d", pruned)
	}
}
