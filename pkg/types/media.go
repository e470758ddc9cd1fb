package types

// MediaMetadata describes image or video dimensions.
type MediaMetadata struct {
	Width    *float64 `json:"width,omitempty"`
	Height   *float64 `json:"height,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
}

// Attachment links a media file to a process or note.
type Attachment struct {
	TargetID   string `json:"attachedTo"`
	TargetType string `json:"attachedType"`
}

// MediaFile is a stored blob. The bytes live in the media directory as
// <id><ext>; Path is where they were written.
type MediaFile struct {
	ID            string         `json:"id"`
	Filename      string         `json:"filename"`
	MimeType      string         `json:"mimeType"`
	Size          int64          `json:"size"`
	Path          string         `json:"path"`
	ThumbnailPath *string        `json:"thumbnailPath,omitempty"`
	Metadata      *MediaMetadata `json:"metadata,omitempty"`
	AttachedTo    []Attachment   `json:"attachedTo"`
	CreatedAt     int64          `json:"createdAt"`
}

// MediaUpload is the input to SaveMedia. An empty MimeType is sniffed from
// Data.
type MediaUpload struct {
	Filename     string         `json:"filename"`
	Data         []byte         `json:"data"`
	MimeType     string         `json:"mimeType"`
	AttachedTo   string         `json:"attachedTo"`
	AttachedType string         `json:"attachedType"`
	Metadata     *MediaMetadata `json:"metadata,omitempty"`
}

// MediaContent is a media record together with its bytes.
type MediaContent struct {
	File MediaFile `json:"file"`
	Data []byte    `json:"data"`
}
