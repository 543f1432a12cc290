package document

import (
	"errors"

	"github.com/google/uuid"
)

type CreateDocumentDTO struct {
	ProjectID uuid.UUID `json:"project_id" validate:"required"`
	Title     string    `json:"title" validate:"required,min=1,max=200"`
	Content   string    `json:"content" validate:"required"`
}

func (dto CreateDocumentDTO) Validate() error {
	if dto.ProjectID == uuid.Nil {
		return errors.New("project_id is required")
	}
	if dto.Title == "" {
		return errors.New("title is required")
	}
	if len(dto.Title) > 200 {
		return errors.New("title must be less than 200 characters")
	}
	if dto.Content == "" {
		return errors.New("content is required")
	}
	return nil
}

type AddVersionDTO struct {
	Content string `json:"content" validate:"required"`
	Comment string `json:"comment" validate:"max=500"`
}

func (dto AddVersionDTO) Validate() error {
	if dto.Content == "" {
		return errors.New("content is required")
	}
	if len(dto.Comment) > 500 {
		return errors.New("comment must be less than 500 characters")
	}
	return nil
}
