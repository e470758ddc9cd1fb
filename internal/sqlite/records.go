// This file implements the per-table record codecs shared by export and import.
package sqlite

// tableCodec describes how one table travels through export and import.
// Every statement is a literal; nothing is assembled from identifiers at
// runtime. Columns in selectSQL, insertSQL and upsertSQL follow the order of
// columns.
type tableCodec struct {
	table     string
	docKey    string
	columns   []string
	keys      []string
	defaults  map[string]any
	selectSQL string
	insertSQL string
	upsertSQL string
	deleteSQL string
}

// Column lists shared by the codecs and their statements.
var (
	processColumns = []string{
		"id", "title", "description", "content", "parent_id",
		"position_x", "position_y", "width", "height", "color", "icon",
		"created_at", "updated_at", "version", "last_modified_by", "sync_status",
	}
	connectionColumns = []string{
		"id", "source_id", "target_id", "label", "type", "style", "created_at", "updated_at",
	}
	noteColumns = []string{
		"id", "title", "content", "created_at", "updated_at", "version", "last_modified_by", "sync_status",
	}
	templateColumns  = []string{"id", "title", "description", "created_at", "updated_at"}
	itemColumns      = []string{"id", "template_id", "text", "order_index"}
	instanceColumns  = []string{"id", "template_id", "attached_to", "attached_type", "created_at", "updated_at"}
	completedColumns = []string{"instance_id", "item_id", "note", "completed_at"}
	mediaColumns     = []string{
		"id", "filename", "mime_type", "size", "path", "thumbnail_path", "metadata", "created_at",
	}
)

const (
	processInsertHead = `INSERT INTO processes (
    id, title, description, content, parent_id,
    position_x, position_y, width, height, color, icon,
    created_at, updated_at, version, last_modified_by, sync_status
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	connectionInsertHead = `INSERT INTO process_connections (
    id, source_id, target_id, label, type, style, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	noteInsertHead = `INSERT INTO notes (
    id, title, content, created_at, updated_at, version, last_modified_by, sync_status
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	templateInsertHead = `INSERT INTO checklist_templates (
    id, title, description, created_at, updated_at
) VALUES (?, ?, ?, ?, ?)`
	itemInsertHead = `INSERT INTO checklist_template_items (
    id, template_id, text, order_index
) VALUES (?, ?, ?, ?)`
	instanceInsertHead = `INSERT INTO checklist_instances (
    id, template_id, attached_to, attached_type, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?)`
	completedInsertHead = `INSERT INTO checklist_completed_items (
    instance_id, item_id, note, completed_at
) VALUES (?, ?, ?, ?)`
	mediaInsertHead = `INSERT INTO media_files (
    id, filename, mime_type, size, path, thumbnail_path, metadata, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	noteTagInsert         = `INSERT INTO note_tags (note_id, tag) VALUES (?, ?)`
	noteProcessLinkInsert = `INSERT INTO note_process_links (note_id, process_id) VALUES (?, ?)`
	noteNoteLinkInsert    = `INSERT INTO note_note_links (note_id, linked_note_id) VALUES (?, ?)`
	attachmentInsertHead  = `INSERT INTO media_attachments (media_id, attached_to, attached_type) VALUES (?, ?, ?)`
	settingInsertHead     = `INSERT INTO app_settings (key, value) VALUES (?, ?)`
)

// codecs lists every table parents first. Replace deletes walk it in
// reverse.
var codecs = []tableCodec{
	{
		table:     "processes",
		docKey:    "processes",
		columns:   processColumns,
		keys:      []string{"id"},
		defaults:  map[string]any{"version": int64(1), "sync_status": "local", "position_x": int64(0), "position_y": int64(0)},
		selectSQL: `SELECT id, title, description, content, parent_id, position_x, position_y, width, height, color, icon, created_at, updated_at, version, last_modified_by, sync_status FROM processes ORDER BY rowid`,
		insertSQL: processInsertHead,
		upsertSQL: processInsertHead + `
ON CONFLICT (id) DO UPDATE SET
    title = excluded.title, description = excluded.description, content = excluded.content,
    parent_id = excluded.parent_id, position_x = excluded.position_x, position_y = excluded.position_y,
    width = excluded.width, height = excluded.height, color = excluded.color, icon = excluded.icon,
    created_at = excluded.created_at, updated_at = excluded.updated_at, version = excluded.version,
    last_modified_by = excluded.last_modified_by, sync_status = excluded.sync_status`,
		deleteSQL: `DELETE FROM processes`,
	},
	{
		table:     "process_connections",
		docKey:    "processConnections",
		columns:   connectionColumns,
		keys:      []string{"id"},
		defaults:  map[string]any{"type": "default"},
		selectSQL: `SELECT id, source_id, target_id, label, type, style, created_at, updated_at FROM process_connections ORDER BY rowid`,
		insertSQL: connectionInsertHead,
		upsertSQL: connectionInsertHead + `
ON CONFLICT (id) DO UPDATE SET
    source_id = excluded.source_id, target_id = excluded.target_id, label = excluded.label,
    type = excluded.type, style = excluded.style,
    created_at = excluded.created_at, updated_at = excluded.updated_at`,
		deleteSQL: `DELETE FROM process_connections`,
	},
	{
		table:     "notes",
		docKey:    "notes",
		columns:   noteColumns,
		keys:      []string{"id"},
		defaults:  map[string]any{"version": int64(1), "sync_status": "local"},
		selectSQL: `SELECT id, title, content, created_at, updated_at, version, last_modified_by, sync_status FROM notes ORDER BY rowid`,
		insertSQL: noteInsertHead,
		upsertSQL: noteInsertHead + `
ON CONFLICT (id) DO UPDATE SET
    title = excluded.title, content = excluded.content,
    created_at = excluded.created_at, updated_at = excluded.updated_at, version = excluded.version,
    last_modified_by = excluded.last_modified_by, sync_status = excluded.sync_status`,
		deleteSQL: `DELETE FROM notes`,
	},
	{
		table:     "note_tags",
		docKey:    "noteTags",
		columns:   []string{"note_id", "tag"},
		keys:      []string{"note_id", "tag"},
		selectSQL: `SELECT note_id, tag FROM note_tags ORDER BY rowid`,
		insertSQL: noteTagInsert,
		upsertSQL: noteTagInsert + ` ON CONFLICT (note_id, tag) DO NOTHING`,
		deleteSQL: `DELETE FROM note_tags`,
	},
	{
		table:     "note_process_links",
		docKey:    "noteProcessLinks",
		columns:   []string{"note_id", "process_id"},
		keys:      []string{"note_id", "process_id"},
		selectSQL: `SELECT note_id, process_id FROM note_process_links ORDER BY rowid`,
		insertSQL: noteProcessLinkInsert,
		upsertSQL: noteProcessLinkInsert + ` ON CONFLICT (note_id, process_id) DO NOTHING`,
		deleteSQL: `DELETE FROM note_process_links`,
	},
	{
		table:     "note_note_links",
		docKey:    "noteNoteLinks",
		columns:   []string{"note_id", "linked_note_id"},
		keys:      []string{"note_id", "linked_note_id"},
		selectSQL: `SELECT note_id, linked_note_id FROM note_note_links ORDER BY rowid`,
		insertSQL: noteNoteLinkInsert,
		upsertSQL: noteNoteLinkInsert + ` ON CONFLICT (note_id, linked_note_id) DO NOTHING`,
		deleteSQL: `DELETE FROM note_note_links`,
	},
	{
		table:     "checklist_templates",
		docKey:    "checklistTemplates",
		columns:   templateColumns,
		keys:      []string{"id"},
		selectSQL: `SELECT id, title, description, created_at, updated_at FROM checklist_templates ORDER BY rowid`,
		insertSQL: templateInsertHead,
		upsertSQL: templateInsertHead + `
ON CONFLICT (id) DO UPDATE SET
    title = excluded.title, description = excluded.description,
    created_at = excluded.created_at, updated_at = excluded.updated_at`,
		deleteSQL: `DELETE FROM checklist_templates`,
	},
	{
		table:     "checklist_template_items",
		docKey:    "checklistTemplateItems",
		columns:   itemColumns,
		keys:      []string{"id"},
		selectSQL: `SELECT id, template_id, text, order_index FROM checklist_template_items ORDER BY rowid`,
		insertSQL: itemInsertHead,
		upsertSQL: itemInsertHead + `
ON CONFLICT (id) DO UPDATE SET
    template_id = excluded.template_id, text = excluded.text, order_index = excluded.order_index`,
		deleteSQL: `DELETE FROM checklist_template_items`,
	},
	{
		table:     "checklist_instances",
		docKey:    "checklistInstances",
		columns:   instanceColumns,
		keys:      []string{"id"},
		selectSQL: `SELECT id, template_id, attached_to, attached_type, created_at, updated_at FROM checklist_instances ORDER BY rowid`,
		insertSQL: instanceInsertHead,
		upsertSQL: instanceInsertHead + `
ON CONFLICT (id) DO UPDATE SET
    template_id = excluded.template_id, attached_to = excluded.attached_to,
    attached_type = excluded.attached_type,
    created_at = excluded.created_at, updated_at = excluded.updated_at`,
		deleteSQL: `DELETE FROM checklist_instances`,
	},
	{
		table:     "checklist_completed_items",
		docKey:    "checklistCompletedItems",
		columns:   completedColumns,
		keys:      []string{"instance_id", "item_id"},
		selectSQL: `SELECT instance_id, item_id, note, completed_at FROM checklist_completed_items ORDER BY rowid`,
		insertSQL: completedInsertHead,
		upsertSQL: completedInsertHead + `
ON CONFLICT (instance_id, item_id) DO UPDATE SET
    note = excluded.note, completed_at = excluded.completed_at`,
		deleteSQL: `DELETE FROM checklist_completed_items`,
	},
	{
		table:     "media_files",
		docKey:    "mediaFiles",
		columns:   mediaColumns,
		keys:      []string{"id"},
		selectSQL: `SELECT id, filename, mime_type, size, path, thumbnail_path, metadata, created_at FROM media_files ORDER BY rowid`,
		insertSQL: mediaInsertHead,
		upsertSQL: mediaInsertHead + `
ON CONFLICT (id) DO UPDATE SET
    filename = excluded.filename, mime_type = excluded.mime_type, size = excluded.size,
    path = excluded.path, thumbnail_path = excluded.thumbnail_path,
    metadata = excluded.metadata, created_at = excluded.created_at`,
		deleteSQL: `DELETE FROM media_files`,
	},
	{
		table:     "media_attachments",
		docKey:    "mediaAttachments",
		columns:   []string{"media_id", "attached_to", "attached_type"},
		keys:      []string{"media_id", "attached_to"},
		selectSQL: `SELECT media_id, attached_to, attached_type FROM media_attachments ORDER BY rowid`,
		insertSQL: attachmentInsertHead,
		upsertSQL: attachmentInsertHead + `
ON CONFLICT (media_id, attached_to) DO UPDATE SET attached_type = excluded.attached_type`,
		deleteSQL: `DELETE FROM media_attachments`,
	},
	settingsCodec,
}

// settingsCodec is last in codecs. Import treats it apart: merge never
// touches settings and replace rewrites them only when the document has
// them.
var settingsCodec = tableCodec{
	table:     "app_settings",
	docKey:    "settings",
	columns:   []string{"key", "value"},
	keys:      []string{"key"},
	selectSQL: `SELECT key, value FROM app_settings ORDER BY key`,
	insertSQL: settingInsertHead,
	upsertSQL: settingInsertHead + ` ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
	deleteSQL: `DELETE FROM app_settings`,
}

// entityCodecs returns every codec except settings.
func entityCodecs() []tableCodec {
	return codecs[:len(codecs)-1]
}
