// Package workflows persists saved workflow definitions. Definitions are
// stored as opaque JSON documents; the engine only sees them when a client
// submits one for execution.
package workflows

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Workflow is a saved graph definition.
type Workflow struct {
	ID        string         `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string         `json:"name" gorm:"not null;index"`
	Data      string         `json:"data" gorm:"type:text;not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (w *Workflow) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	return nil
}
