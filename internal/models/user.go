package models

// User is a registered account. Users are immutable after registration.
type User struct {
	ID           int64  `db:"id" json:"id"`
	Name         string `db:"name" json:"name"`
	Email        string `db:"email" json:"email"`
	PasswordHash string `db:"password_hash" json:"-"`
}

// Sort orders accepted by catalog listings.
const (
	OrderNewest = "newest"
	OrderOldest = "oldest"
)

// ListFilter pages through an append-only catalog.
type ListFilter struct {
	Order    string
	Page     int
	PageSize int
}

// Newest reports whether the listing runs newest-first, the default.
func (f ListFilter) Newest() bool {
	return f.Order != OrderOldest
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
