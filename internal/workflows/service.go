package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/flowgraph-go/pkg/logger"
)

const untitledPrefix = "Untitled"

// Service wraps the repository with naming and payload validation rules.
type Service struct {
	repo *Repository
	log  logger.Logger
}

func NewService(repo *Repository, log logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Create stores a new definition. A blank name is replaced with the next
// "Untitled N" slot, and the data document must be valid JSON.
func (s *Service) Create(ctx context.Context, name, data string) (*Workflow, error) {
	if err := validateData(data); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		count, err := s.repo.CountWithPrefix(ctx, untitledPrefix)
		if err != nil {
			return nil, err
		}
		name = fmt.Sprintf("%s %d", untitledPrefix, count+1)
	}

	wf := &Workflow{Name: name, Data: data}
	if err := s.repo.Create(ctx, wf); err != nil {
		return nil, err
	}
	s.log.Info("workflow created", "workflow_id", wf.ID, "name", wf.Name)
	return wf, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Workflow, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Workflow, error) {
	return s.repo.List(ctx)
}

func (s *Service) Update(ctx context.Context, id, name, data string) (*Workflow, error) {
	wf, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if name = strings.TrimSpace(name); name != "" {
		wf.Name = name
	}
	if data != "" {
		if err := validateData(data); err != nil {
			return nil, err
		}
		wf.Data = data
	}
	if err := s.repo.Update(ctx, wf); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("workflow deleted", "workflow_id", id)
	return nil
}

func validateData(data string) error {
	if strings.TrimSpace(data) == "" {
		return fmt.Errorf("workflow data must not be empty")
	}
	if !json.Valid([]byte(data)) {
		return fmt.Errorf("workflow data must be valid JSON")
	}
	return nil
}
