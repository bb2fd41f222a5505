package service

import (
	"context"
	"strings"
	"testing"

	"ims_backend/internal/templates/repository"
	"ims_backend/platform/apperr"
	"ims_backend/platform/logger"
)

type fakeRepo struct {
	rows  map[string]repository.Template
	reads int
}

func newFakeRepo(rows ...repository.Template) *fakeRepo {
	f := &fakeRepo{rows: map[string]repository.Template{}}
	for _, r := range rows {
		f.rows[r.Key] = r
	}
	return f
}

func (f *fakeRepo) Create(_ context.Context, t repository.Template) (repository.Template, error) {
	if existing, ok := f.rows[t.Key]; ok {
		return repository.Template{}, apperr.Conflict("template key already exists").WithDetails(existing)
	}
	f.rows[t.Key] = t
	return t, nil
}

func (f *fakeRepo) GetByKey(_ context.Context, key string) (repository.Template, error) {
	f.reads++
	t, ok := f.rows[key]
	if !ok {
		return repository.Template{}, apperr.NotFound("template not found")
	}
	return t, nil
}

func (f *fakeRepo) List(context.Context) ([]repository.Template, error) { return nil, nil }

func (f *fakeRepo) Update(_ context.Context, key string, u repository.TemplateUpdate) (repository.Template, error) {
	t, ok := f.rows[key]
	if !ok {
		return repository.Template{}, apperr.NotFound("template not found")
	}
	if u.Subject != nil {
		t.Subject = *u.Subject
	}
	if u.HTML != nil {
		t.HTML = *u.HTML
	}
	f.rows[key] = t
	return t, nil
}

func (f *fakeRepo) Delete(_ context.Context, key string) error {
	delete(f.rows, key)
	return nil
}

func TestRender_SubstitutesVariablesAndLoops(t *testing.T) {
	repo := newFakeRepo(repository.Template{
		Key:     "proposal",
		Subject: "Your proposal for {{ event_name }}",
		HTML:    `<p>Dear {{ name | default: "there" }}</p>{% for link in proposal_links %}<a href="{{ link }}">x</a>{% endfor %}`,
	})
	svc := New(repo, logger.Discard())

	out, err := svc.Render(context.Background(), "proposal", map[string]interface{}{
		"event_name":     "Summer Gala",
		"proposal_links": []string{"https://p/1", "https://p/2"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Subject != "Your proposal for Summer Gala" {
		t.Fatalf("unexpected subject %q", out.Subject)
	}
	if !strings.Contains(out.HTML, "Dear there") || strings.Count(out.HTML, "<a href=") != 2 {
		t.Fatalf("unexpected html %q", out.HTML)
	}
}

func TestGet_ServesFromCacheUntilUpdated(t *testing.T) {
	repo := newFakeRepo(repository.Template{Key: "follow-up-1", Subject: "A", HTML: "a"})
	svc := New(repo, logger.Discard())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Get(ctx, "follow-up-1"); err != nil {
			t.Fatalf("get: %v", err)
		}
	}
	if repo.reads != 1 {
		t.Fatalf("expected a single repository read, got %d", repo.reads)
	}

	subject := "B"
	if _, err := svc.Update(ctx, "follow-up-1", nil, &subject, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := svc.Get(ctx, "follow-up-1")
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Subject != "B" {
		t.Fatalf("expected cache to be evicted on update, got subject %q", got.Subject)
	}
}

func TestCreate_DuplicateKeyIsConflict(t *testing.T) {
	repo := newFakeRepo(repository.Template{Key: "confirm-email", Subject: "x", HTML: "y"})
	svc := New(repo, logger.Discard())

	_, err := svc.Create(context.Background(), " Confirm-Email ", "Confirm", "s", "h")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreate_RejectsInvalidLiquid(t *testing.T) {
	svc := New(newFakeRepo(), logger.Discard())

	_, err := svc.Create(context.Background(), "broken", "Broken", "ok", "{% for x in %}")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRenderer_CurrencyFilter(t *testing.T) {
	r := NewRenderer()
	out, err := r.Render("{{ amount | currency }}", map[string]interface{}{"amount": "1234.5"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "£1234.50" {
		t.Fatalf("unexpected output %q", out)
	}
}
