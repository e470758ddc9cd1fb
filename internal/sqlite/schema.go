// Package sqlite implements the embedded SQLite store for ProcessFlow: schema
// management, the transaction coordinator, the entity repositories and the
// export/import engine.
package sqlite

// Schema DDL for all tables. Every statement is idempotent so EnsureSchema
// can run on each open.
const (
	createProcesses = `CREATE TABLE IF NOT EXISTS processes (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT,
    content TEXT,
    parent_id TEXT,
    position_x REAL NOT NULL,
    position_y REAL NOT NULL,
    width REAL,
    height REAL,
    color TEXT,
    icon TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,
    last_modified_by TEXT,
    sync_status TEXT NOT NULL DEFAULT 'local',
    FOREIGN KEY (parent_id) REFERENCES processes(id) ON DELETE CASCADE
);`

	createProcessConnections = `CREATE TABLE IF NOT EXISTS process_connections (
    id TEXT PRIMARY KEY,
    source_id TEXT NOT NULL,
    target_id TEXT NOT NULL,
    label TEXT,
    type TEXT NOT NULL DEFAULT 'default',
    style TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    FOREIGN KEY (source_id) REFERENCES processes(id) ON DELETE CASCADE,
    FOREIGN KEY (target_id) REFERENCES processes(id) ON DELETE CASCADE
);`

	createNotes = `CREATE TABLE IF NOT EXISTS notes (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    content TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,
    last_modified_by TEXT,
    sync_status TEXT NOT NULL DEFAULT 'local'
);`

	createNoteTags = `CREATE TABLE IF NOT EXISTS note_tags (
    note_id TEXT NOT NULL,
    tag TEXT NOT NULL,
    PRIMARY KEY (note_id, tag),
    FOREIGN KEY (note_id) REFERENCES notes(id) ON DELETE CASCADE
);`

	createNoteProcessLinks = `CREATE TABLE IF NOT EXISTS note_process_links (
    note_id TEXT NOT NULL,
    process_id TEXT NOT NULL,
    PRIMARY KEY (note_id, process_id),
    FOREIGN KEY (note_id) REFERENCES notes(id) ON DELETE CASCADE,
    FOREIGN KEY (process_id) REFERENCES processes(id) ON DELETE CASCADE
);`

	createNoteNoteLinks = `CREATE TABLE IF NOT EXISTS note_note_links (
    note_id TEXT NOT NULL,
    linked_note_id TEXT NOT NULL,
    PRIMARY KEY (note_id, linked_note_id),
    FOREIGN KEY (note_id) REFERENCES notes(id) ON DELETE CASCADE,
    FOREIGN KEY (linked_note_id) REFERENCES notes(id) ON DELETE CASCADE
);`

	createChecklistTemplates = `CREATE TABLE IF NOT EXISTS checklist_templates (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);`

	createChecklistTemplateItems = `CREATE TABLE IF NOT EXISTS checklist_template_items (
    id TEXT PRIMARY KEY,
    template_id TEXT NOT NULL,
    text TEXT NOT NULL,
    order_index INTEGER NOT NULL,
    FOREIGN KEY (template_id) REFERENCES checklist_templates(id) ON DELETE CASCADE
);`

	createChecklistInstances = `CREATE TABLE IF NOT EXISTS checklist_instances (
    id TEXT PRIMARY KEY,
    template_id TEXT NOT NULL,
    attached_to TEXT NOT NULL,
    attached_type TEXT NOT NULL CHECK (attached_type IN ('process', 'note')),
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    FOREIGN KEY (template_id) REFERENCES checklist_templates(id) ON DELETE CASCADE
);`

	createChecklistCompletedItems = `CREATE TABLE IF NOT EXISTS checklist_completed_items (
    instance_id TEXT NOT NULL,
    item_id TEXT NOT NULL,
    note TEXT,
    completed_at INTEGER NOT NULL,
    PRIMARY KEY (instance_id, item_id),
    FOREIGN KEY (instance_id) REFERENCES checklist_instances(id) ON DELETE CASCADE,
    FOREIGN KEY (item_id) REFERENCES checklist_template_items(id) ON DELETE CASCADE
);`

	createMediaFiles = `CREATE TABLE IF NOT EXISTS media_files (
    id TEXT PRIMARY KEY,
    filename TEXT NOT NULL,
    mime_type TEXT NOT NULL,
    size INTEGER NOT NULL,
    path TEXT NOT NULL,
    thumbnail_path TEXT,
    metadata TEXT,
    created_at INTEGER NOT NULL
);`

	createMediaAttachments = `CREATE TABLE IF NOT EXISTS media_attachments (
    media_id TEXT NOT NULL,
    attached_to TEXT NOT NULL,
    attached_type TEXT NOT NULL CHECK (attached_type IN ('process', 'note')),
    PRIMARY KEY (media_id, attached_to),
    FOREIGN KEY (media_id) REFERENCES media_files(id) ON DELETE CASCADE
);`

	createAppSettings = `CREATE TABLE IF NOT EXISTS app_settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);`
)

// Index DDL for common queries.
const (
	idxProcessesParent         = `CREATE INDEX IF NOT EXISTS idx_processes_parent ON processes(parent_id);`
	idxProcessesUpdated        = `CREATE INDEX IF NOT EXISTS idx_processes_updated ON processes(updated_at);`
	idxConnectionsSource       = `CREATE INDEX IF NOT EXISTS idx_connections_source ON process_connections(source_id);`
	idxConnectionsTarget       = `CREATE INDEX IF NOT EXISTS idx_connections_target ON process_connections(target_id);`
	idxNotesUpdated            = `CREATE INDEX IF NOT EXISTS idx_notes_updated ON notes(updated_at);`
	idxNotesTitle              = `CREATE INDEX IF NOT EXISTS idx_notes_title ON notes(title);`
	idxNoteTagsTag             = `CREATE INDEX IF NOT EXISTS idx_note_tags_tag ON note_tags(tag);`
	idxNoteProcessLinksProcess = `CREATE INDEX IF NOT EXISTS idx_note_process_links_process ON note_process_links(process_id);`
	idxNoteNoteLinksLinked     = `CREATE INDEX IF NOT EXISTS idx_note_note_links_linked ON note_note_links(linked_note_id);`
	idxChecklistItemsTemplate  = `CREATE INDEX IF NOT EXISTS idx_checklist_items_template ON checklist_template_items(template_id);`
	idxChecklistInstancesTmpl  = `CREATE INDEX IF NOT EXISTS idx_checklist_instances_template ON checklist_instances(template_id);`
	idxChecklistInstancesAtt   = `CREATE INDEX IF NOT EXISTS idx_checklist_instances_attached ON checklist_instances(attached_to);`
	idxCompletedItemsItem      = `CREATE INDEX IF NOT EXISTS idx_checklist_completed_item ON checklist_completed_items(item_id);`
	idxMediaAttachmentsAtt     = `CREATE INDEX IF NOT EXISTS idx_media_attachments_attached ON media_attachments(attached_to);`
)

// Checklist instances and media attachments point at either a process or a
// note, so they cannot carry a foreign key. These triggers give them the same
// cascade a foreign key would, including for processes removed by the
// parent_id cascade.
const (
	trgProcessesDelete = `CREATE TRIGGER IF NOT EXISTS trg_processes_delete_attachments
AFTER DELETE ON processes
BEGIN
    DELETE FROM checklist_instances WHERE attached_type = 'process' AND attached_to = OLD.id;
    DELETE FROM media_attachments WHERE attached_type = 'process' AND attached_to = OLD.id;
END;`

	trgNotesDelete = `CREATE TRIGGER IF NOT EXISTS trg_notes_delete_attachments
AFTER DELETE ON notes
BEGIN
    DELETE FROM checklist_instances WHERE attached_type = 'note' AND attached_to = OLD.id;
    DELETE FROM media_attachments WHERE attached_type = 'note' AND attached_to = OLD.id;
END;`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createProcesses,
	createProcessConnections,
	createNotes,
	createNoteTags,
	createNoteProcessLinks,
	createNoteNoteLinks,
	createChecklistTemplates,
	createChecklistTemplateItems,
	createChecklistInstances,
	createChecklistCompletedItems,
	createMediaFiles,
	createMediaAttachments,
	createAppSettings,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxProcessesParent,
	idxProcessesUpdated,
	idxConnectionsSource,
	idxConnectionsTarget,
	idxNotesUpdated,
	idxNotesTitle,
	idxNoteTagsTag,
	idxNoteProcessLinksProcess,
	idxNoteNoteLinksLinked,
	idxChecklistItemsTemplate,
	idxChecklistInstancesTmpl,
	idxChecklistInstancesAtt,
	idxCompletedItemsItem,
	idxMediaAttachmentsAtt,
}

// triggerDDL lists the attachment cascade triggers.
var triggerDDL = []string{
	trgProcessesDelete,
	trgNotesDelete,
}
