package types

// Sync status values. They are stored and round-tripped but carry no
// resolution logic.
const (
	SyncLocal    = "local"
	SyncSynced   = "synced"
	SyncConflict = "conflict"
)

// DefaultProcessTitle is used when a process is created without a title.
const DefaultProcessTitle = "New Process"

var validSyncStatuses = map[string]bool{
	SyncLocal:    true,
	SyncSynced:   true,
	SyncConflict: true,
}

// ValidSyncStatus reports whether s is a recognized sync status.
func ValidSyncStatus(s string) bool {
	return validSyncStatuses[s]
}

// Position is a canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is the rendered size of a process node.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Process is a node in the workflow diagram. ParentID nests it under another
// process; deleting the parent deletes the whole subtree.
type Process struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Content        string   `json:"content"`
	ParentID       *string  `json:"parentId,omitempty"`
	Position       Position `json:"position"`
	Size           *Size    `json:"size,omitempty"`
	Color          *string  `json:"color,omitempty"`
	Icon           *string  `json:"icon,omitempty"`
	CreatedAt      int64    `json:"createdAt"`
	UpdatedAt      int64    `json:"updatedAt"`
	Version        int64    `json:"version"`
	LastModifiedBy *string  `json:"lastModifiedBy,omitempty"`
	SyncStatus     string   `json:"syncStatus"`
}

// ProcessPatch is a partial Process. On create, absent fields take their
// defaults; on update, absent fields keep their stored value.
type ProcessPatch struct {
	Title          Optional[string]   `json:"title"`
	Description    Optional[string]   `json:"description"`
	Content        Optional[string]   `json:"content"`
	ParentID       Optional[*string]  `json:"parentId"`
	Position       Optional[Position] `json:"position"`
	Size           Optional[*Size]    `json:"size"`
	Color          Optional[*string]  `json:"color"`
	Icon           Optional[*string]  `json:"icon"`
	LastModifiedBy Optional[*string]  `json:"lastModifiedBy"`
	SyncStatus     Optional[string]   `json:"syncStatus"`
}

// ProcessWithRelations is a process together with everything that hangs off
// it: direct sub-processes, incident connections, linked notes and attached
// checklist instances.
type ProcessWithRelations struct {
	Process
	SubProcesses []Process           `json:"subProcesses"`
	Connections  []Connection        `json:"connections"`
	Notes        []Note              `json:"notes"`
	Checklists   []ChecklistInstance `json:"checklists"`
}

type parentMode int

const (
	parentAll parentMode = iota
	parentRoot
	parentChildren
)

// ParentFilter selects processes by parent for ListProcesses. The zero value
// selects every process.
type ParentFilter struct {
	mode parentMode
	id   string
}

// AllProcesses matches every process regardless of parent.
func AllProcesses() ParentFilter { return ParentFilter{mode: parentAll} }

// RootProcesses matches processes without a parent.
func RootProcesses() ParentFilter { return ParentFilter{mode: parentRoot} }

// ChildrenOf matches the direct children of the process with the given id.
func ChildrenOf(id string) ParentFilter { return ParentFilter{mode: parentChildren, id: id} }

// ParentFilterFrom maps a decoded parentId field onto a filter: absent means
// all, null means root only, a string means children of that id.
func ParentFilterFrom(o Optional[*string]) ParentFilter {
	v, ok := o.Get()
	switch {
	case !ok:
		return AllProcesses()
	case v == nil:
		return RootProcesses()
	default:
		return ChildrenOf(*v)
	}
}

// IsAll reports whether the filter matches every process.
func (f ParentFilter) IsAll() bool { return f.mode == parentAll }

// IsRoot reports whether the filter matches root processes only.
func (f ParentFilter) IsRoot() bool { return f.mode == parentRoot }

// ParentID returns the parent id for a ChildrenOf filter.
func (f ParentFilter) ParentID() (string, bool) {
	return f.id, f.mode == parentChildren
}
