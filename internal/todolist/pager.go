package todolist

// pagerWindow is the most page numbers shown before ellipses kick in.
const pagerWindow = 5

// PageItem is one entry in a pager: a page number or an ellipsis gap.
type PageItem struct {
	Number   int
	Ellipsis bool
	Current  bool
}

// PageNumbers builds the pager for current out of total pages. Short lists
// show every page; longer ones keep the first and last page and the
// neighbourhood of current, separated by ellipses.
func PageNumbers(current, total int) []PageItem {
	if total <= 0 {
		return nil
	}

	var nums []int
	switch {
	case total <= pagerWindow:
		for i := 1; i <= total; i++ {
			nums = append(nums, i)
		}
	case current <= 3:
		nums = []int{1, 2, 3, 4, 0, total}
	case current >= total-2:
		nums = []int{1, 0, total - 3, total - 2, total - 1, total}
	default:
		nums = []int{1, 0, current - 1, current, current + 1, 0, total}
	}

	items := make([]PageItem, 0, len(nums))
	for _, n := range nums {
		if n == 0 {
			items = append(items, PageItem{Ellipsis: true})
			continue
		}
		items = append(items, PageItem{Number: n, Current: n == current})
	}
	return items
}

// HasPrev reports whether a previous-page control should be enabled.
func HasPrev(current int) bool {
	return current > 1
}

// HasNext reports whether a next-page control should be enabled.
func HasNext(current, total int) bool {
	return current < total
}
