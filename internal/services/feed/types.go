package feed

// Lifecycle is the render state of one feed entry
type Lifecycle int

const (
	// StateNormal - confirmed content, nothing in flight
	StateNormal Lifecycle = iota
	// StateUploading - local task still on its way to the server
	StateUploading
	// StateFailed - local task hit a failure, rendered inline with its message
	StateFailed
)

// Entry is one row of the rendered feed: a view projection over either a
// local publish task or a server feed item. Never persisted.
type Entry struct {
	// ResolvedID is the server id once known, otherwise a deterministic
	// negative synthetic id derived from the task's local id. Server ids
	// are strictly positive, so the two ranges never collide.
	ResolvedID int64

	Title     string
	Author    string
	AvatarRef *string
	LikeCount int
	IsLiked   bool

	// MediaRef is a remote URL for server entries, a local reference for
	// task-derived ones
	MediaRef *string
	Width    int
	Height   int

	State       Lifecycle
	FailMessage string

	// OriginLocalID is set only for task-derived entries. It stays stable
	// while ResolvedID flips from synthetic to real, which keeps list
	// diffing from treating the confirmed post as a new row.
	OriginLocalID string
}

// LikeState is one optimistic like override: the value the UI already
// shows, not yet confirmed by the server
type LikeState struct {
	IsLiked bool
	Count   int
}

// Identity describes the current user, used to attribute task-derived
// entries before the server has seen them
type Identity struct {
	Nickname  string
	AvatarRef *string
}
