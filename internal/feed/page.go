package feed

import "blog/internal/models"

// PageSize is the number of posts per feed page.
const PageSize = 10

// Page is one slice of an ordered post list.
type Page struct {
	Posts    []models.Post
	Number   int
	NumPages int
	Total    int
}

func (p Page) HasNext() bool   { return p.Number < p.NumPages }
func (p Page) HasPrev() bool   { return p.Number > 1 }
func (p Page) NextNumber() int { return p.Number + 1 }
func (p Page) PrevNumber() int { return p.Number - 1 }

// Paginate slices an already-ordered post list into 1-based pages of
// PageSize. Out-of-range page numbers clamp to the first or last page
// instead of failing, so a stale link still renders a boundary page.
func Paginate(posts []models.Post, number int) Page {
	total := len(posts)
	numPages := (total + PageSize - 1) / PageSize
	if numPages < 1 {
		numPages = 1
	}
	if number < 1 {
		number = 1
	}
	if number > numPages {
		number = numPages
	}
	lo := (number - 1) * PageSize
	hi := lo + PageSize
	if lo > total {
		lo = total
	}
	if hi > total {
		hi = total
	}
	return Page{
		Posts:    posts[lo:hi],
		Number:   number,
		NumPages: numPages,
		Total:    total,
	}
}
