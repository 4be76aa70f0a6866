package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/routelink-api/internal/models"
)

const linkColumns = "id, name, drop_point, phone, course_year, branch"

// LinkRepository persists traveler links.
type LinkRepository struct {
	db *sqlx.DB
}

// NewLinkRepository constructs a link repository.
func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

// Create inserts a link and stores the generated identifier on it.
func (r *LinkRepository) Create(ctx context.Context, link *models.Link) error {
	query := r.db.Rebind(`INSERT INTO links (name, drop_point, phone, course_year, branch) VALUES (?, ?, ?, ?, ?) RETURNING id`)
	if err := r.db.GetContext(ctx, &link.ID, query, link.Name, link.DropPoint, link.Phone, link.CourseYear, link.Branch); err != nil {
		return fmt.Errorf("create link: %w", err)
	}
	return nil
}

// FindByID fetches a link. sql.ErrNoRows is returned unwrapped when it does not exist.
func (r *LinkRepository) FindByID(ctx context.Context, id int64) (*models.Link, error) {
	query := r.db.Rebind(fmt.Sprintf(`SELECT %s FROM links WHERE id = ?`, linkColumns))
	var link models.Link
	if err := r.db.GetContext(ctx, &link, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find link: %w", err)
	}
	return &link, nil
}

// List returns one page of links in creation order together with the total count.
func (r *LinkRepository) List(ctx context.Context, filter models.ListFilter) ([]models.Link, int, error) {
	limit, offset := pageWindow(filter)
	query := fmt.Sprintf(`SELECT %s FROM links ORDER BY id %s LIMIT %d OFFSET %d`, linkColumns, idOrder(filter), limit, offset)
	links := []models.Link{}
	if err := r.db.SelectContext(ctx, &links, query); err != nil {
		return nil, 0, fmt.Errorf("list links: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM links`); err != nil {
		return nil, 0, fmt.Errorf("count links: %w", err)
	}
	return links, total, nil
}

// Recent returns the newest links.
func (r *LinkRepository) Recent(ctx context.Context, limit int) ([]models.Link, error) {
	query := fmt.Sprintf(`SELECT %s FROM links ORDER BY id DESC LIMIT %d`, linkColumns, limit)
	links := []models.Link{}
	if err := r.db.SelectContext(ctx, &links, query); err != nil {
		return nil, fmt.Errorf("recent links: %w", err)
	}
	return links, nil
}
