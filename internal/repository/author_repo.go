package repository

import (
	"context"
	"database/sql"

	"github.com/content-generation-api/internal/database"
	"github.com/content-generation-api/internal/models"
)

// authorRepo is the concrete implementation of AuthorRepository
type authorRepo struct {
	db *database.DB
}

// NewAuthorRepo creates a new author repository
func NewAuthorRepo(db *database.DB) AuthorRepository {
	return &authorRepo{db: db}
}

// GetByID retrieves an author by ID; nil, nil when absent
func (r *authorRepo) GetByID(ctx context.Context, id string) (*models.Author, error) {
	var author models.Author
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, role FROM authors WHERE id = $1`, id,
	).Scan(&author.ID, &author.Name, &author.Role)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &author, nil
}
