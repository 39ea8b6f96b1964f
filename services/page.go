package services

import "gorm.io/gorm"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is a 1-based page request
type Page struct {
	Number int
	Size   int
}

// NewPage clamps the requested page into valid bounds.
func NewPage(number, size int) Page {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return Page{Number: number, Size: size}
}

// Apply adds LIMIT/OFFSET. A zero Page returns everything.
func (p Page) Apply(q *gorm.DB) *gorm.DB {
	if p.Size == 0 {
		return q
	}
	return q.Limit(p.Size).Offset((p.Number - 1) * p.Size)
}

func (p Page) TotalPages(total int64) int {
	if p.Size == 0 {
		return 1
	}
	return int((total + int64(p.Size) - 1) / int64(p.Size))
}
