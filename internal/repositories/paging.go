package repositories

const (
	defaultPage = 50
	maxPage     = 100
)

// pageBounds clamps client-supplied paging to [1, maxPage] and a
// non-negative offset.
func pageBounds(limit, offset int) (int, int) {
	switch {
	case limit <= 0:
		limit = defaultPage
	case limit > maxPage:
		limit = maxPage
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
