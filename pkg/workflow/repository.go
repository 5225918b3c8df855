package workflow

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dukex/qmsflow/pkg/models"
)

// TemplateRepository stores workflow templates. List returns templates in the
// order they were first saved.
type TemplateRepository interface {
	List(ctx context.Context) ([]*models.WorkflowTemplate, error)
	Get(ctx context.Context, id string) (*models.WorkflowTemplate, error)
	Save(ctx context.Context, template *models.WorkflowTemplate) error
}

// Repository is the in-memory TemplateRepository.
type Repository struct {
	mu        sync.RWMutex
	templates []*models.WorkflowTemplate
}

// NewRepository creates a repository holding copies of the given templates.
func NewRepository(seed ...*models.WorkflowTemplate) *Repository {
	r := &Repository{}

	for _, t := range seed {
		r.templates = append(r.templates, t.Clone())
	}

	return r
}

func (r *Repository) List(_ context.Context) ([]*models.WorkflowTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.WorkflowTemplate, len(r.templates))
	for i, t := range r.templates {
		out[i] = t.Clone()
	}

	return out, nil
}

func (r *Repository) Get(_ context.Context, id string) (*models.WorkflowTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.index(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, id)
	}

	return r.templates[i].Clone(), nil
}

func (r *Repository) Save(_ context.Context, template *models.WorkflowTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.index(template.ID); i >= 0 {
		r.templates[i] = template.Clone()

		return nil
	}

	r.templates = append(r.templates, template.Clone())

	return nil
}

func (r *Repository) index(id string) int {
	return slices.IndexFunc(r.templates, func(t *models.WorkflowTemplate) bool { return t.ID == id })
}
