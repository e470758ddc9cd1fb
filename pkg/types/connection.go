package types

// Connection types.
const (
	ConnectionDefault     = "default"
	ConnectionConditional = "conditional"
	ConnectionParallel    = "parallel"
)

var validConnectionTypes = map[string]bool{
	ConnectionDefault:     true,
	ConnectionConditional: true,
	ConnectionParallel:    true,
}

// ValidConnectionType reports whether t is a recognized connection type.
func ValidConnectionType(t string) bool {
	return validConnectionTypes[t]
}

// ConnectionStyle holds stroke attributes. It is stored as JSON text.
type ConnectionStyle struct {
	Stroke          string  `json:"stroke,omitempty"`
	StrokeWidth     float64 `json:"strokeWidth,omitempty"`
	StrokeDasharray string  `json:"strokeDasharray,omitempty"`
}

// Connection is a directed edge between two processes. It is deleted with
// either endpoint.
type Connection struct {
	ID        string           `json:"id"`
	SourceID  string           `json:"sourceId"`
	TargetID  string           `json:"targetId"`
	Label     *string          `json:"label,omitempty"`
	Type      string           `json:"type"`
	Style     *ConnectionStyle `json:"style,omitempty"`
	CreatedAt int64            `json:"createdAt"`
	UpdatedAt int64            `json:"updatedAt"`
}

// ConnectionPatch is a partial Connection. SourceID and TargetID are required
// on create.
type ConnectionPatch struct {
	SourceID Optional[string]           `json:"sourceId"`
	TargetID Optional[string]           `json:"targetId"`
	Label    Optional[*string]          `json:"label"`
	Type     Optional[string]           `json:"type"`
	Style    Optional[*ConnectionStyle] `json:"style"`
}
