package models

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// NormalizePage clamps zero-based paging input to sane bounds.
func NormalizePage(page, perPage int) (int, int) {
	if page < 0 {
		page = 0
	}
	switch {
	case perPage <= 0:
		perPage = DefaultPerPage
	case perPage > MaxPerPage:
		perPage = MaxPerPage
	}
	return page, perPage
}
