package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"mdrcore/pkg/domain"
)

func TestFindAtVersion(t *testing.T) {
	ctx := context.Background()
	_, repo := newFormEnv(t)
	form, err := repo.Create(ctx, draftForm("Vitals"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	form.Name = "Vital Signs"
	if _, err := repo.Save(ctx, form); err != nil {
		t.Fatalf("save: %v", err)
	}

	old, err := repo.FindByUID(ctx, form.UID, AtVersion(domain.MustParseVersion("0.1")))
	if err != nil {
		t.Fatalf("find at version: %v", err)
	}
	if old.Name != "Vitals" || old.Version != domain.MustParseVersion("0.1") {
		t.Errorf("got %q at %s", old.Name, old.Version)
	}

	_, err = repo.FindByUID(ctx, form.UID, AtVersion(domain.MustParseVersion("9.9")))
	var notFound domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if notFound.Filter == "" {
		t.Error("filtered miss should describe the filter")
	}
}

func TestFindWithStatus(t *testing.T) {
	ctx := context.Background()
	_, repo := newFormEnv(t)
	form, err := repo.Create(ctx, draftForm("Vitals"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.Approve(ctx, form.UID, "reviewer-1", "ok"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := repo.NewDraft(ctx, form.UID, "user-1", "next"); err != nil {
		t.Fatalf("new draft: %v", err)
	}

	head, err := repo.FindByUID(ctx, form.UID)
	if err != nil {
		t.Fatalf("find head: %v", err)
	}
	if head.Status != domain.StatusDraft || head.Version != domain.MustParseVersion("1.1") {
		t.Fatalf("head %s %s", head.Version, head.Status)
	}

	final, err := repo.FindByUID(ctx, form.UID, WithStatus(domain.StatusFinal))
	if err != nil {
		t.Fatalf("find final: %v", err)
	}
	if final.Version != domain.MustParseVersion("1.0") || final.Status != domain.StatusFinal {
		t.Errorf("final %s %s", final.Version, final.Status)
	}
}

func TestFindSkipsRetiredHeadByDefault(t *testing.T) {
	ctx := context.Background()
	_, repo := newFormEnv(t)
	form, err := repo.Create(ctx, draftForm("Vitals"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.Approve(ctx, form.UID, "reviewer-1", "ok"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := repo.Retire(ctx, form.UID, "admin-1", "superseded"); err != nil {
		t.Fatalf("retire: %v", err)
	}

	head, err := repo.FindByUID(ctx, form.UID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if head.Status != domain.StatusFinal || head.Version != domain.MustParseVersion("1.0") {
		t.Errorf("default lookup resolved %s %s", head.Version, head.Status)
	}

	retired, err := repo.FindByUID(ctx, form.UID, WithStatus(domain.StatusRetired))
	if err != nil {
		t.Fatalf("find retired: %v", err)
	}
	if retired.Status != domain.StatusRetired {
		t.Errorf("retired lookup resolved %s", retired.Status)
	}
}

func TestFindAsOf(t *testing.T) {
	ctx := context.Background()
	_, repo := newFormEnv(t)
	form, err := repo.Create(ctx, draftForm("Vitals"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	form.Name = "Vital Signs"
	if _, err := repo.Save(ctx, form); err != nil {
		t.Fatalf("save: %v", err)
	}

	history, err := repo.VersionHistory(ctx, form.UID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history %+v", history)
	}

	// An instant inside the first edge's validity window resolves to it.
	at, err := repo.FindByUID(ctx, form.UID, AsOf(history[0].StartDate))
	if err != nil {
		t.Fatalf("find as of: %v", err)
	}
	if at.Name != "Vitals" || at.Version != domain.MustParseVersion("0.1") {
		t.Errorf("as-of resolved %q at %s", at.Name, at.Version)
	}

	// Before the root existed nothing matches.
	_, err = repo.FindByUID(ctx, form.UID, AsOf(history[0].StartDate.Add(-time.Hour)))
	var notFound domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}
