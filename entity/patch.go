package entity

// Patch is a closed set of optimistic field changes. Each mutation kind maps
// to a statically known patch, so the coordinator never deals in loosely
// typed partial objects. Count decrements clamp at zero.
type Patch struct {
	// Like-family fields
	LikeDelta int
	Liked     *bool

	// Comment-family fields
	CommentDelta int

	// Follow-family fields
	Following      *bool
	FollowerDelta  int
	FollowingDelta int

	// Rating fields
	Rating        *float64
	ReadingStatus *ReadingStatus

	// Library fields
	BookDelta int

	// Privacy fields
	Setting *SettingChange
}

// SettingChange toggles the visibility of one owner-controlled field.
type SettingChange struct {
	Field  string
	Public bool
}

// IsZero reports whether the patch changes nothing.
func (p Patch) IsZero() bool {
	return p.LikeDelta == 0 && p.Liked == nil &&
		p.CommentDelta == 0 &&
		p.Following == nil && p.FollowerDelta == 0 && p.FollowingDelta == 0 &&
		p.Rating == nil && p.ReadingStatus == nil &&
		p.BookDelta == 0 && p.Setting == nil
}

// Fragment carries authoritative field values returned by the server after a
// mutation settles. Nil fields were not reported and stay untouched.
type Fragment struct {
	LikeCount      *int
	IsLiked        *bool
	CommentCount   *int
	IsFollowing    *bool
	FollowerCount  *int
	FollowingCount *int
	Rating         *float64
	ReadingStatus  *ReadingStatus
	BookCount      *int
}

// IsZero reports whether the fragment carries no field values.
func (f Fragment) IsZero() bool {
	return f.LikeCount == nil && f.IsLiked == nil && f.CommentCount == nil &&
		f.IsFollowing == nil && f.FollowerCount == nil && f.FollowingCount == nil &&
		f.Rating == nil && f.ReadingStatus == nil && f.BookCount == nil
}

// clampAdd adds delta to count, clamping the result at zero so no count
// field ever goes negative.
func clampAdd(count, delta int) int {
	count += delta
	if count < 0 {
		return 0
	}
	return count
}

// Int returns a pointer to v, for building fragments.
func Int(v int) *int { return &v }

// Bool returns a pointer to v, for building fragments.
func Bool(v bool) *bool { return &v }

// Float returns a pointer to v, for building fragments.
func Float(v float64) *float64 { return &v }

// Status returns a pointer to v, for building fragments.
func Status(v ReadingStatus) *ReadingStatus { return &v }
