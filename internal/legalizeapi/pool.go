package legalizeapi

const poolPageSize = 128

// Pool is an arena of T used for the instructions and blocks of a function.
// Items never move, so pointers to them stay valid until Reset.
type Pool[T any] struct {
	// pages[:used] hold allocated items, the rest are kept from before the last Reset.
	pages     []*[poolPageSize]T
	used      int
	allocated int
}

// NewPool returns an empty Pool.
func NewPool[T any]() Pool[T] {
	return Pool[T]{}
}

// Allocated returns the number of items allocated since the last Reset.
func (p *Pool[T]) Allocated() int {
	return p.allocated
}

// Allocate returns a pointer to a zero T.
func (p *Pool[T]) Allocate() *T {
	page, off := p.allocated/poolPageSize, p.allocated%poolPageSize
	if page == p.used {
		if page == len(p.pages) {
			p.pages = append(p.pages, new([poolPageSize]T))
		}
		p.used++
	}
	p.allocated++
	return &p.pages[page][off]
}

// View returns the i-th item allocated since the last Reset.
func (p *Pool[T]) View(i int) *T {
	if i < 0 || i >= p.allocated {
		panic("BUG: pool index out of range")
	}
	return &p.pages[i/poolPageSize][i%poolPageSize]
}

// Reset clears the used pages and keeps them for the next function.
func (p *Pool[T]) Reset() {
	for _, page := range p.pages[:p.used] {
		clear(page[:])
	}
	p.used, p.allocated = 0, 0
}
