// Package shared holds cross-cutting helpers used by the domain services.
package shared

// ResultList is the paginated listing envelope returned by list operations.
type ResultList[T any] struct {
	Data       []T `json:"data"`
	TotalCount int `json:"totalCount"`
}

// ClampPage normalises limit/offset query values. Limit defaults to 20 and is
// capped at 100; a negative offset becomes zero.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Page slices items for the given window and wraps them with the total count.
func Page[T any](items []T, limit, offset int) ResultList[T] {
	limit, offset = ClampPage(limit, offset)
	total := len(items)
	if offset >= total {
		return ResultList[T]{Data: []T{}, TotalCount: total}
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return ResultList[T]{Data: items[offset:end], TotalCount: total}
}
