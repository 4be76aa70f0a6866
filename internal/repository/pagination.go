package repository

import "github.com/noah-isme/routelink-api/internal/models"

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

func pageWindow(filter models.ListFilter) (limit, offset int) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}
	return size, (page - 1) * size
}

func idOrder(filter models.ListFilter) string {
	if filter.Newest() {
		return "DESC"
	}
	return "ASC"
}
