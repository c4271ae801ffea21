package aggregator

import "github.com/onemorebsmith/kaspa-pool-monitor/src/model"

// Paginate slices an already-sorted sequence into one page. It never sorts;
// ordering is the caller's contract. Pages past the end yield empty data with
// the counts intact.
func Paginate[T any](sorted []T, page, perPage int) model.Page[T] {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}

	totalCount := len(sorted)
	start := (page - 1) * perPage
	end := start + perPage
	if start > totalCount {
		start = totalCount
	}
	if end > totalCount {
		end = totalCount
	}

	data := sorted[start:end]
	if data == nil {
		data = []T{} // keep `data` an array, not null, in JSON
	}
	return model.Page[T]{
		Data:       data,
		Pagination: PageMeta(totalCount, page, perPage),
	}
}

// PageMeta computes pagination metadata alone, for views whose data slice
// comes straight from a LIMIT/OFFSET query.
func PageMeta(totalCount, page, perPage int) model.Pagination {
	totalPages := 0
	if totalCount > 0 && perPage > 0 {
		totalPages = (totalCount + perPage - 1) / perPage
	}
	return model.Pagination{
		CurrentPage: page,
		PerPage:     perPage,
		TotalCount:  totalCount,
		TotalPages:  totalPages,
	}
}
