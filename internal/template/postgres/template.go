package postgres

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/frahmantamala/azure-docgen/internal/template"
)

// TemplateRepository implements the template.Repository interface using GORM.
type TemplateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) template.Repository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) Transaction(fn func(template.Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&TemplateRepository{db: tx})
	})
}

func (r *TemplateRepository) CreateTemplate(tmpl *template.Template) error {
	// Parameters are inserted separately so batch creation stays explicit.
	return r.db.Omit("Parameters").Create(tmpl).Error
}

func (r *TemplateRepository) GetTemplateByID(id uuid.UUID) (*template.Template, error) {
	var tmpl template.Template
	err := r.db.Where("id = ?", id).First(&tmpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tmpl, nil
}

func (r *TemplateRepository) GetTemplateDetail(id uuid.UUID) (*template.Template, error) {
	var tmpl template.Template
	err := r.db.
		Preload("Parameters", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC")
		}).
		Where("id = ?", id).
		First(&tmpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tmpl, nil
}

func (r *TemplateRepository) UpdateTemplate(tmpl *template.Template) error {
	return r.db.Omit("Parameters").Save(tmpl).Error
}

func (r *TemplateRepository) DeleteTemplate(id uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("template_id = ?", id).Delete(&template.TemplateParameter{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&template.Template{}).Error
	})
}

// ListVisibleTemplates returns own templates, global templates, and
// project-shared templates on accessible projects, optionally narrowed to one
// project.
func (r *TemplateRepository) ListVisibleTemplates(userID string, accessibleProjectIDs []uuid.UUID, projectID *uuid.UUID) ([]*template.Template, error) {
	query := r.db.Preload("Parameters", func(db *gorm.DB) *gorm.DB {
		return db.Order("display_order ASC")
	})

	if len(accessibleProjectIDs) > 0 {
		query = query.Where(
			"created_by = ? OR sharing_level = ? OR (sharing_level = ? AND project_id IN ?)",
			userID, template.SharingGlobal, template.SharingProject, accessibleProjectIDs,
		)
	} else {
		query = query.Where("created_by = ? OR sharing_level = ?", userID, template.SharingGlobal)
	}

	if projectID != nil {
		query = query.Where("project_id = ? OR project_id IS NULL", *projectID)
	}

	var templates []*template.Template
	err := query.Order("created_at DESC").Find(&templates).Error
	return templates, err
}

func (r *TemplateRepository) ReplaceParameters(templateID uuid.UUID, parameters []*template.TemplateParameter) error {
	if err := r.db.Where("template_id = ?", templateID).Delete(&template.TemplateParameter{}).Error; err != nil {
		return err
	}
	return r.CreateParameters(parameters)
}

func (r *TemplateRepository) CreateParameters(parameters []*template.TemplateParameter) error {
	if len(parameters) == 0 {
		return nil
	}
	return r.db.Create(parameters).Error
}
