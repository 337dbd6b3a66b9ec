package entity

import "time"

// Review is one user's review of a book.
type Review struct {
	ID           string
	BookID       string
	AuthorID     string
	Body         string
	Rating       float64
	LikeCount    int
	CommentCount int
	IsLiked      bool
	CreatedAt    time.Time
}

// Ref returns the review's logical reference.
func (r *Review) Ref() Ref { return NewRef(KindReview, r.ID) }

// Clone implements Value.
func (r *Review) Clone() Value {
	c := *r
	return &c
}

// Refs implements Value.
func (r *Review) Refs() []Ref { return []Ref{r.Ref()} }

// Patch implements Value.
func (r *Review) Patch(ref Ref, p Patch) bool {
	if ref != r.Ref() {
		return false
	}
	r.LikeCount = clampAdd(r.LikeCount, p.LikeDelta)
	r.CommentCount = clampAdd(r.CommentCount, p.CommentDelta)
	if p.Liked != nil {
		r.IsLiked = *p.Liked
	}
	if p.Rating != nil {
		r.Rating = *p.Rating
	}
	return true
}

// Reconcile implements Value.
func (r *Review) Reconcile(ref Ref, f Fragment) bool {
	if ref != r.Ref() {
		return false
	}
	if f.LikeCount != nil {
		r.LikeCount = *f.LikeCount
	}
	if f.IsLiked != nil {
		r.IsLiked = *f.IsLiked
	}
	if f.CommentCount != nil {
		r.CommentCount = *f.CommentCount
	}
	if f.Rating != nil {
		r.Rating = *f.Rating
	}
	return true
}

// Profile is a user's public profile, including the owner-controlled
// visibility settings consulted by the privacy gate.
type Profile struct {
	ID             string
	Username       string
	FollowerCount  int
	FollowingCount int
	IsFollowing    bool
	Settings       map[string]bool
}

// Ref returns the profile's logical reference.
func (p *Profile) Ref() Ref { return NewRef(KindProfile, p.ID) }

// Clone implements Value.
func (p *Profile) Clone() Value {
	c := *p
	if p.Settings != nil {
		c.Settings = make(map[string]bool, len(p.Settings))
		for k, v := range p.Settings {
			c.Settings[k] = v
		}
	}
	return &c
}

// Refs implements Value.
func (p *Profile) Refs() []Ref { return []Ref{p.Ref()} }

// Patch implements Value.
func (p *Profile) Patch(ref Ref, pt Patch) bool {
	if ref != p.Ref() {
		return false
	}
	p.FollowerCount = clampAdd(p.FollowerCount, pt.FollowerDelta)
	p.FollowingCount = clampAdd(p.FollowingCount, pt.FollowingDelta)
	if pt.Following != nil {
		p.IsFollowing = *pt.Following
	}
	if pt.Setting != nil {
		if p.Settings == nil {
			p.Settings = make(map[string]bool)
		}
		p.Settings[pt.Setting.Field] = pt.Setting.Public
	}
	return true
}

// Reconcile implements Value.
func (p *Profile) Reconcile(ref Ref, f Fragment) bool {
	if ref != p.Ref() {
		return false
	}
	if f.FollowerCount != nil {
		p.FollowerCount = *f.FollowerCount
	}
	if f.FollowingCount != nil {
		p.FollowingCount = *f.FollowingCount
	}
	if f.IsFollowing != nil {
		p.IsFollowing = *f.IsFollowing
	}
	return true
}

// Comment is one comment under a review.
type Comment struct {
	ID        string
	ReviewID  string
	AuthorID  string
	Body      string
	LikeCount int
	IsLiked   bool
	CreatedAt time.Time
}

// Ref returns the comment's logical reference.
func (c *Comment) Ref() Ref { return NewRef(KindComment, c.ID) }

// Clone implements Value.
func (c *Comment) Clone() Value {
	cp := *c
	return &cp
}

// Refs implements Value.
func (c *Comment) Refs() []Ref { return []Ref{c.Ref()} }

// Patch implements Value.
func (c *Comment) Patch(ref Ref, p Patch) bool {
	if ref != c.Ref() {
		return false
	}
	c.LikeCount = clampAdd(c.LikeCount, p.LikeDelta)
	if p.Liked != nil {
		c.IsLiked = *p.Liked
	}
	return true
}

// Reconcile implements Value.
func (c *Comment) Reconcile(ref Ref, f Fragment) bool {
	if ref != c.Ref() {
		return false
	}
	if f.LikeCount != nil {
		c.LikeCount = *f.LikeCount
	}
	if f.IsLiked != nil {
		c.IsLiked = *f.IsLiked
	}
	return true
}

// Book is a book dialog's cached state for the current viewer.
type Book struct {
	ID            string
	Title         string
	AverageRating float64
	UserRating    float64
	ReviewCount   int
	ReadingStatus ReadingStatus
}

// Ref returns the book's logical reference.
func (b *Book) Ref() Ref { return NewRef(KindBook, b.ID) }

// Clone implements Value.
func (b *Book) Clone() Value {
	c := *b
	return &c
}

// Refs implements Value.
func (b *Book) Refs() []Ref { return []Ref{b.Ref()} }

// Patch implements Value.
func (b *Book) Patch(ref Ref, p Patch) bool {
	if ref != b.Ref() {
		return false
	}
	if p.Rating != nil {
		b.UserRating = *p.Rating
	}
	if p.ReadingStatus != nil {
		b.ReadingStatus = *p.ReadingStatus
	}
	return true
}

// Reconcile implements Value.
func (b *Book) Reconcile(ref Ref, f Fragment) bool {
	if ref != b.Ref() {
		return false
	}
	if f.Rating != nil {
		b.UserRating = *f.Rating
	}
	if f.ReadingStatus != nil {
		b.ReadingStatus = *f.ReadingStatus
	}
	return true
}

// Library is a user-curated book collection.
type Library struct {
	ID        string
	OwnerID   string
	Name      string
	BookCount int
	BookIDs   []string
}

// Ref returns the library's logical reference.
func (l *Library) Ref() Ref { return NewRef(KindLibrary, l.ID) }

// Clone implements Value.
func (l *Library) Clone() Value {
	c := *l
	if l.BookIDs != nil {
		c.BookIDs = append([]string(nil), l.BookIDs...)
	}
	return &c
}

// Refs implements Value.
func (l *Library) Refs() []Ref { return []Ref{l.Ref()} }

// Patch implements Value.
func (l *Library) Patch(ref Ref, p Patch) bool {
	if ref != l.Ref() {
		return false
	}
	l.BookCount = clampAdd(l.BookCount, p.BookDelta)
	return true
}

// Reconcile implements Value.
func (l *Library) Reconcile(ref Ref, f Fragment) bool {
	if ref != l.Ref() {
		return false
	}
	if f.BookCount != nil {
		l.BookCount = *f.BookCount
	}
	return true
}

// Contains reports whether the library already holds the given book.
func (l *Library) Contains(bookID string) bool {
	for _, id := range l.BookIDs {
		if id == bookID {
			return true
		}
	}
	return false
}
