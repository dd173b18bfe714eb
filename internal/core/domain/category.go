package domain

import (
	"errors"
	"strings"
	"time"
)

type Category struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	DocumentCount int       `json:"document_count"`
	CreatedAt     time.Time `json:"created_at"`
}

func (c *Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return WrapError(ErrInvalidInput, "validate category", errors.New("name is required"))
	}
	if strings.TrimSpace(c.Description) == "" {
		return WrapError(ErrInvalidInput, "validate category", errors.New("description is required"))
	}
	return nil
}

// CategoryFeedback is a manual correction sent back to the classification model.
type CategoryFeedback struct {
	DocumentID  string `json:"document_id"`
	Filename    string `json:"filename"`
	Text        string `json:"text"`
	CategoryID  string `json:"category_id"`
	Category    string `json:"category"`
	Explanation string `json:"explanation,omitempty"`
}
