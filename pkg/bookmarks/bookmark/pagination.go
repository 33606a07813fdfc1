package bookmark

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultPage    = 1
	defaultPerPage = 5
	maxPerPage     = 100
)

// Meta describes one page of a listing.
type Meta struct {
	Page       int   `json:"page"`
	Pages      int   `json:"pages"`
	TotalCount int64 `json:"total_count"`
	PrevPage   *int  `json:"prev_page"`
	NextPage   *int  `json:"next_page"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// queryInt reads an integer query parameter, falling back to def when the
// parameter is absent or not a number.
func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

// perPageOf clamps the requested page size to maxPerPage.
func perPageOf(requested int) int {
	if requested > maxPerPage {
		return maxPerPage
	}
	return requested
}

// pageCount is the number of pages needed for total items; perPage must be >= 1.
func pageCount(total int64, perPage int) int {
	return int((total + int64(perPage) - 1) / int64(perPage))
}

func newMeta(page, perPage int, total int64) Meta {
	pages := pageCount(total, perPage)
	m := Meta{
		Page:       page,
		Pages:      pages,
		TotalCount: total,
		HasPrev:    page > 1,
		HasNext:    page < pages,
	}
	if m.HasPrev {
		prev := page - 1
		m.PrevPage = &prev
	}
	if m.HasNext {
		next := page + 1
		m.NextPage = &next
	}
	return m
}
