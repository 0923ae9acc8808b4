package workflows

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/flowgraph-go/pkg/database"
)

var ErrNotFound = errors.New("workflow not found")

type Repository struct {
	db *database.DB
}

func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, wf *Workflow) error {
	return r.db.WithContext(ctx).Create(wf).Error
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Workflow, error) {
	var wf Workflow
	err := r.db.WithContext(ctx).First(&wf, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &wf, nil
}

func (r *Repository) List(ctx context.Context) ([]Workflow, error) {
	var items []Workflow
	err := r.db.WithContext(ctx).Order("updated_at DESC").Find(&items).Error
	return items, err
}

func (r *Repository) Update(ctx context.Context, wf *Workflow) error {
	result := r.db.WithContext(ctx).Model(&Workflow{}).
		Where("id = ?", wf.ID).
		Updates(map[string]interface{}{"name": wf.Name, "data": wf.Data})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&Workflow{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountWithPrefix reports how many workflows have a name starting with the
// given prefix. Used for the "Untitled N" default naming scheme.
func (r *Repository) CountWithPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Workflow{}).
		Where("name LIKE ?", prefix+"%").
		Count(&count).Error
	return count, err
}
