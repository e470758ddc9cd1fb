package types

// DefaultChecklistTitle is used when a template is created without a title.
const DefaultChecklistTitle = "New Checklist"

// Attachment target kinds for checklist instances and media.
const (
	AttachedToProcess = "process"
	AttachedToNote    = "note"
)

// ValidAttachedType reports whether t names an attachable entity kind.
func ValidAttachedType(t string) bool {
	return t == AttachedToProcess || t == AttachedToNote
}

// ChecklistItem is one step of a template.
type ChecklistItem struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}

// ChecklistItemInput describes an item to write. An empty ID gets a fresh
// one; a nil Order takes the item's index in the list.
type ChecklistItemInput struct {
	ID    string `json:"id,omitempty"`
	Text  string `json:"text"`
	Order *int   `json:"order,omitempty"`
}

// ChecklistTemplate is a reusable ordered task list.
type ChecklistTemplate struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description *string         `json:"description,omitempty"`
	Items       []ChecklistItem `json:"items"`
	CreatedAt   int64           `json:"createdAt"`
	UpdatedAt   int64           `json:"updatedAt"`
}

// TemplatePatch is a partial ChecklistTemplate. Present Items replace the
// stored items as a whole.
type TemplatePatch struct {
	Title       Optional[string]               `json:"title"`
	Description Optional[*string]              `json:"description"`
	Items       Optional[[]ChecklistItemInput] `json:"items"`
}

// ChecklistInstance is the completion state of a template attached to a
// process or a note.
type ChecklistInstance struct {
	ID             string            `json:"id"`
	TemplateID     string            `json:"templateId"`
	AttachedTo     string            `json:"attachedTo"`
	AttachedType   string            `json:"attachedType"`
	CompletedItems []string          `json:"completedItems"`
	Notes          map[string]string `json:"notes"`
	CompletedAt    map[string]int64  `json:"completedAt"`
	CreatedAt      int64             `json:"createdAt"`
	UpdatedAt      int64             `json:"updatedAt"`
}

// InstancePatch is a partial ChecklistInstance. TemplateID, AttachedTo and
// AttachedType are required on create and ignored on update. Present
// CompletedItems replace the completed set; Notes supplies per-item notes.
type InstancePatch struct {
	TemplateID     Optional[string]            `json:"templateId"`
	AttachedTo     Optional[string]            `json:"attachedTo"`
	AttachedType   Optional[string]            `json:"attachedType"`
	CompletedItems Optional[[]string]          `json:"completedItems"`
	Notes          Optional[map[string]string] `json:"notes"`
}
