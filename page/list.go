// Package page implements infinite pagination: the paged list value cached
// by the store and the manager that fetches, merges and de-duplicates pages.
package page

import (
	"github.com/gozephyr/viewsync/entity"
)

// Page is one fetched page: its cursor and the entities it carried.
type Page struct {
	Cursor string
	Items  []entity.Value
}

// List is the cached value of a paginated key: an ordered sequence of pages
// plus the server's explicit has-more signal. The set of entity ids in a
// list only grows as pages accrue; merges de-duplicate, they never remove.
type List struct {
	Pages      []Page
	HasMore    bool
	NextCursor string
}

// NewList creates a list holding a single first page. The page goes through
// the same dedup as later merges.
func NewList(p Page, hasMore bool, nextCursor string) *List {
	l := &List{}
	l.merge(p, hasMore, nextCursor)
	return l
}

// Clone implements entity.Value.
func (l *List) Clone() entity.Value {
	c := &List{
		Pages:      make([]Page, len(l.Pages)),
		HasMore:    l.HasMore,
		NextCursor: l.NextCursor,
	}
	for i, p := range l.Pages {
		cp := Page{Cursor: p.Cursor, Items: make([]entity.Value, len(p.Items))}
		for j, item := range p.Items {
			cp.Items[j] = item.Clone()
		}
		c.Pages[i] = cp
	}
	return c
}

// Refs implements entity.Value: every denormalized copy in every page.
func (l *List) Refs() []entity.Ref {
	var refs []entity.Ref
	for _, p := range l.Pages {
		for _, item := range p.Items {
			refs = append(refs, item.Refs()...)
		}
	}
	return refs
}

// Patch implements entity.Value, patching every embedded copy matching ref.
func (l *List) Patch(ref entity.Ref, pt entity.Patch) bool {
	found := false
	for _, p := range l.Pages {
		for _, item := range p.Items {
			if item.Patch(ref, pt) {
				found = true
			}
		}
	}
	return found
}

// Reconcile implements entity.Value.
func (l *List) Reconcile(ref entity.Ref, f entity.Fragment) bool {
	found := false
	for _, p := range l.Pages {
		for _, item := range p.Items {
			if item.Reconcile(ref, f) {
				found = true
			}
		}
	}
	return found
}

// Len returns the total number of entities across all pages
func (l *List) Len() int {
	n := 0
	for _, p := range l.Pages {
		n += len(p.Items)
	}
	return n
}

// Items returns all entities in page order
func (l *List) Items() []entity.Value {
	items := make([]entity.Value, 0, l.Len())
	for _, p := range l.Pages {
		items = append(items, p.Items...)
	}
	return items
}

// Find implements entity.Finder, locating the embedded copy of ref.
func (l *List) Find(ref entity.Ref) (entity.Value, bool) {
	for _, p := range l.Pages {
		for _, item := range p.Items {
			if v, ok := entity.Find(item, ref); ok {
				return v, ok
			}
		}
	}
	return nil, false
}

// Contains reports whether any page already embeds a copy of ref
func (l *List) Contains(ref entity.Ref) bool {
	for _, p := range l.Pages {
		for _, item := range p.Items {
			for _, r := range item.Refs() {
				if r == ref {
					return true
				}
			}
		}
	}
	return false
}

// merge appends a new page, dropping items whose ref already appears in a
// prior page or earlier in the same page. It returns the number of
// duplicates dropped.
func (l *List) merge(p Page, hasMore bool, nextCursor string) int {
	kept := make([]entity.Value, 0, len(p.Items))
	seen := make(map[entity.Ref]struct{}, len(p.Items))
	dropped := 0
	for _, item := range p.Items {
		dup := false
		for _, r := range item.Refs() {
			if _, ok := seen[r]; ok {
				dup = true
				break
			}
			if l.Contains(r) {
				dup = true
				break
			}
		}
		if dup {
			dropped++
			continue
		}
		for _, r := range item.Refs() {
			seen[r] = struct{}{}
		}
		kept = append(kept, item)
	}
	l.Pages = append(l.Pages, Page{Cursor: p.Cursor, Items: kept})
	l.HasMore = hasMore
	l.NextCursor = nextCursor
	return dropped
}
