package service

import (
	"context"
	"encoding/json"
	"strings"

	"ims_backend/internal/templates/repository"
	"ims_backend/platform/apperr"
	"ims_backend/platform/logger"
	"ims_backend/platform/sanitize"

	"github.com/coocood/freecache"
)

const (
	cacheSizeBytes  = 8 * 1024 * 1024
	cacheTTLSeconds = 300
)

// Repository is the template persistence used by the service.
type Repository interface {
	Create(ctx context.Context, t repository.Template) (repository.Template, error)
	GetByKey(ctx context.Context, key string) (repository.Template, error)
	List(ctx context.Context) ([]repository.Template, error)
	Update(ctx context.Context, key string, u repository.TemplateUpdate) (repository.Template, error)
	Delete(ctx context.Context, key string) error
}

// Rendered is a template resolved against a set of variables.
type Rendered struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Service manages templates and renders them. Rows are cached in freecache and
// evicted on every write.
type Service struct {
	repo     Repository
	renderer *Renderer
	cache    *freecache.Cache
	log      *logger.Logger
}

func New(repo Repository, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		renderer: NewRenderer(),
		cache:    freecache.NewCache(cacheSizeBytes),
		log:      log,
	}
}

func (s *Service) Create(ctx context.Context, key, name, subject, html string) (repository.Template, error) {
	key = normalizeKey(key)
	if err := s.validateSources(subject, html); err != nil {
		return repository.Template{}, err
	}
	created, err := s.repo.Create(ctx, repository.Template{
		Key:     key,
		Name:    sanitize.Text(name),
		Subject: strings.TrimSpace(subject),
		HTML:    html,
	})
	if err != nil {
		return repository.Template{}, err
	}
	s.evict(key)
	return created, nil
}

// Get returns the template, serving from cache when possible.
func (s *Service) Get(ctx context.Context, key string) (repository.Template, error) {
	key = normalizeKey(key)
	if raw, err := s.cache.Get([]byte(key)); err == nil {
		var t repository.Template
		if json.Unmarshal(raw, &t) == nil {
			return t, nil
		}
	}

	t, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		return repository.Template{}, err
	}
	if raw, err := json.Marshal(t); err == nil {
		_ = s.cache.Set([]byte(key), raw, cacheTTLSeconds)
	}
	return t, nil
}

func (s *Service) List(ctx context.Context) ([]repository.Template, error) {
	return s.repo.List(ctx)
}

func (s *Service) Update(ctx context.Context, key string, name, subject, html *string) (repository.Template, error) {
	key = normalizeKey(key)
	if subject != nil {
		if err := s.renderer.Validate(*subject); err != nil {
			return repository.Template{}, apperr.Validation("invalid subject template: " + err.Error())
		}
	}
	if html != nil {
		if err := s.renderer.Validate(*html); err != nil {
			return repository.Template{}, apperr.Validation("invalid html template: " + err.Error())
		}
	}

	updated, err := s.repo.Update(ctx, key, repository.TemplateUpdate{
		Name:    sanitize.TextPtr(name),
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return repository.Template{}, err
	}
	s.evict(key)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, key string) error {
	key = normalizeKey(key)
	if err := s.repo.Delete(ctx, key); err != nil {
		return err
	}
	s.evict(key)
	return nil
}

// Render resolves subject and html of the keyed template against vars.
func (s *Service) Render(ctx context.Context, key string, vars map[string]interface{}) (Rendered, error) {
	t, err := s.Get(ctx, key)
	if err != nil {
		return Rendered{}, err
	}
	return s.RenderSource(t.Subject, t.HTML, vars)
}

// RenderSource renders ad-hoc subject and html, as used by custom campaigns.
func (s *Service) RenderSource(subject, html string, vars map[string]interface{}) (Rendered, error) {
	renderedSubject, err := s.renderer.Render(subject, vars)
	if err != nil {
		return Rendered{}, err
	}
	renderedHTML, err := s.renderer.Render(html, vars)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{Subject: strings.TrimSpace(renderedSubject), HTML: renderedHTML}, nil
}

func (s *Service) validateSources(subject, html string) error {
	if err := s.renderer.Validate(subject); err != nil {
		return apperr.Validation("invalid subject template: " + err.Error())
	}
	if err := s.renderer.Validate(html); err != nil {
		return apperr.Validation("invalid html template: " + err.Error())
	}
	return nil
}

func (s *Service) evict(key string) {
	s.cache.Del([]byte(key))
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
