package types

// DefaultNoteTitle is used when a note is created without a title.
const DefaultNoteTitle = "New Note"

// Note is free text with tags and links to processes and other notes.
// Note-to-note links are directed.
type Note struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	Tags            []string `json:"tags"`
	LinkedProcesses []string `json:"linkedProcesses"`
	LinkedNotes     []string `json:"linkedNotes"`
	CreatedAt       int64    `json:"createdAt"`
	UpdatedAt       int64    `json:"updatedAt"`
	Version         int64    `json:"version"`
	LastModifiedBy  *string  `json:"lastModifiedBy,omitempty"`
	SyncStatus      string   `json:"syncStatus"`
}

// NotePatch is a partial Note. A present collection replaces the stored set
// as a whole; an absent one leaves it untouched.
type NotePatch struct {
	Title           Optional[string]   `json:"title"`
	Content         Optional[string]   `json:"content"`
	Tags            Optional[[]string] `json:"tags"`
	LinkedProcesses Optional[[]string] `json:"linkedProcesses"`
	LinkedNotes     Optional[[]string] `json:"linkedNotes"`
	LastModifiedBy  Optional[*string]  `json:"lastModifiedBy"`
	SyncStatus      Optional[string]   `json:"syncStatus"`
}
