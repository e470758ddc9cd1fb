// This file implements the checklist template and instance accessors.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/mesh-intelligence/processflow/pkg/types"
)

const (
	templateSelect = `SELECT id, title, description, created_at, updated_at FROM checklist_templates`
	instanceSelect = `SELECT id, template_id, attached_to, attached_type, created_at, updated_at
FROM checklist_instances`
)

// CreateTemplate inserts a template and its items. Items without an id get
// a fresh one; items without an order take their index.
func (s *Store) CreateTemplate(patch types.TemplatePatch) (types.ChecklistTemplate, error) {
	now := types.NowMillis()
	t := types.ChecklistTemplate{
		ID:          newID(),
		Title:       patch.Title.Value,
		Description: patch.Description.Value,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Title == "" {
		t.Title = types.DefaultChecklistTitle
	}

	var created types.ChecklistTemplate
	err := s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO checklist_templates (
    id, title, description, created_at, updated_at
) VALUES (?, ?, ?, ?, ?)`,
			t.ID, t.Title, nullString(t.Description), t.CreatedAt, t.UpdatedAt,
		); err != nil {
			return fmt.Errorf("inserting template: %w", err)
		}
		if err := writeTemplateItems(tx, t.ID, patch.Items.Value); err != nil {
			return err
		}
		var err error
		created, err = getTemplate(tx, t.ID)
		return err
	})
	if err != nil {
		return types.ChecklistTemplate{}, fmt.Errorf("creating template: %w", err)
	}
	s.log.Debug().Str("id", created.ID).Int("items", len(created.Items)).Msg("template created")
	return created, nil
}

// UpdateTemplate applies patch to the stored template. Present items replace
// the item set: items missing from the new list are removed along with their
// completions, items whose id is kept are rewritten in place.
func (s *Store) UpdateTemplate(id string, patch types.TemplatePatch) (types.ChecklistTemplate, error) {
	if id == "" {
		return types.ChecklistTemplate{}, types.ErrInvalidID
	}

	var updated types.ChecklistTemplate
	err := s.withTx(func(tx *sql.Tx) error {
		t, err := getTemplate(tx, id)
		if err != nil {
			return err
		}
		if v, ok := patch.Title.Get(); ok {
			t.Title = v
		}
		if v, ok := patch.Description.Get(); ok {
			t.Description = v
		}
		t.UpdatedAt = nextStamp(t.UpdatedAt)

		if _, err := tx.Exec(
			"UPDATE checklist_templates SET title = ?, description = ?, updated_at = ? WHERE id = ?",
			t.Title, nullString(t.Description), t.UpdatedAt, id,
		); err != nil {
			return fmt.Errorf("updating template: %w", err)
		}
		if items, ok := patch.Items.Get(); ok {
			if err := writeTemplateItems(tx, id, items); err != nil {
				return err
			}
		}
		updated, err = getTemplate(tx, id)
		return err
	})
	if err != nil {
		return types.ChecklistTemplate{}, fmt.Errorf("updating template: %w", err)
	}
	return updated, nil
}

// DeleteTemplate removes a template, its items and every instance created
// from it. Deleting a missing id succeeds.
func (s *Store) DeleteTemplate(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	err := s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec("DELETE FROM checklist_templates WHERE id = ?", id)
		return err
	})
	if err != nil {
		return fmt.Errorf("deleting template %s: %w", id, err)
	}
	return nil
}

// GetTemplate returns the template with its items ordered by order index.
func (s *Store) GetTemplate(id string) (types.ChecklistTemplate, error) {
	if id == "" {
		return types.ChecklistTemplate{}, types.ErrInvalidID
	}
	var t types.ChecklistTemplate
	err := s.withRead(func(q querier) error {
		var err error
		t, err = getTemplate(q, id)
		return err
	})
	return t, err
}

// ListTemplates returns every template, most recently updated first.
func (s *Store) ListTemplates() ([]types.ChecklistTemplate, error) {
	var out []types.ChecklistTemplate
	err := s.withRead(func(q querier) error {
		rows, err := q.Query(templateSelect + " ORDER BY updated_at DESC, created_at DESC, id DESC")
		if err != nil {
			return fmt.Errorf("listing templates: %w", err)
		}
		out = []types.ChecklistTemplate{}
		for rows.Next() {
			t, err := scanTemplate(rows)
			if err != nil {
				rows.Close()
				return err
			}
			out = append(out, t)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		for i := range out {
			if out[i].Items, err = templateItems(q, out[i].ID); err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// CreateInstance attaches a template to a process or note. The target must
// exist and initial completed items must belong to the template.
func (s *Store) CreateInstance(patch types.InstancePatch) (types.ChecklistInstance, error) {
	now := types.NowMillis()
	inst := types.ChecklistInstance{
		ID:           newID(),
		TemplateID:   patch.TemplateID.Value,
		AttachedTo:   patch.AttachedTo.Value,
		AttachedType: patch.AttachedType.Value,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if inst.TemplateID == "" || inst.AttachedTo == "" {
		return types.ChecklistInstance{}, fmt.Errorf("instance needs template and target: %w", types.ErrInvalidData)
	}
	if !types.ValidAttachedType(inst.AttachedType) {
		return types.ChecklistInstance{}, fmt.Errorf("attached type %q: %w", inst.AttachedType, types.ErrInvalidData)
	}

	var created types.ChecklistInstance
	err := s.withTx(func(tx *sql.Tx) error {
		if err := checkTarget(tx, inst.AttachedType, inst.AttachedTo); err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO checklist_instances (
    id, template_id, attached_to, attached_type, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?)`,
			inst.ID, inst.TemplateID, inst.AttachedTo, inst.AttachedType, inst.CreatedAt, inst.UpdatedAt,
		); err != nil {
			return fmt.Errorf("inserting instance: %w", err)
		}
		if items, ok := patch.CompletedItems.Get(); ok {
			if err := writeCompletedItems(tx, inst.ID, inst.TemplateID, dedupe(items), patch.Notes.Value, now); err != nil {
				return err
			}
		}
		var err error
		created, err = getInstance(tx, inst.ID)
		return err
	})
	if err != nil {
		return types.ChecklistInstance{}, fmt.Errorf("creating instance: %w", err)
	}
	s.log.Debug().Str("id", created.ID).Str("attached_to", created.AttachedTo).Msg("instance created")
	return created, nil
}

// UpdateInstance applies patch to the stored instance. Present completed
// items replace the completed set; items that stay completed keep their
// completion time. Notes apply to completed items only.
func (s *Store) UpdateInstance(id string, patch types.InstancePatch) (types.ChecklistInstance, error) {
	if id == "" {
		return types.ChecklistInstance{}, types.ErrInvalidID
	}

	var updated types.ChecklistInstance
	err := s.withTx(func(tx *sql.Tx) error {
		inst, err := getInstance(tx, id)
		if err != nil {
			return err
		}
		stamp := nextStamp(inst.UpdatedAt)
		if _, err := tx.Exec(
			"UPDATE checklist_instances SET updated_at = ? WHERE id = ?", stamp, id,
		); err != nil {
			return fmt.Errorf("updating instance: %w", err)
		}

		notes, notesSet := patch.Notes.Get()
		if items, ok := patch.CompletedItems.Get(); ok {
			if !notesSet {
				notes = inst.Notes
			}
			if err := writeCompletedItems(tx, id, inst.TemplateID, dedupe(items), notes, stamp); err != nil {
				return err
			}
		} else if notesSet {
			for _, itemID := range inst.CompletedItems {
				if _, err := tx.Exec(
					"UPDATE checklist_completed_items SET note = ? WHERE instance_id = ? AND item_id = ?",
					noteColumn(notes[itemID]), id, itemID,
				); err != nil {
					return fmt.Errorf("updating item note: %w", err)
				}
			}
		}
		updated, err = getInstance(tx, id)
		return err
	})
	if err != nil {
		return types.ChecklistInstance{}, fmt.Errorf("updating instance: %w", err)
	}
	return updated, nil
}

// CompleteItem marks one item complete with an optional note. Completing an
// already completed item replaces its note and keeps its completion time.
func (s *Store) CompleteItem(instanceID, itemID, note string) (types.ChecklistInstance, error) {
	if instanceID == "" || itemID == "" {
		return types.ChecklistInstance{}, types.ErrInvalidID
	}

	var updated types.ChecklistInstance
	err := s.withTx(func(tx *sql.Tx) error {
		inst, err := getInstance(tx, instanceID)
		if err != nil {
			return err
		}
		if err := checkItemsBelong(tx, inst.TemplateID, []string{itemID}); err != nil {
			return err
		}
		stamp := nextStamp(inst.UpdatedAt)
		if _, err := tx.Exec(`INSERT INTO checklist_completed_items (instance_id, item_id, note, completed_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (instance_id, item_id) DO UPDATE SET note = excluded.note`,
			instanceID, itemID, noteColumn(note), stamp,
		); err != nil {
			return fmt.Errorf("completing item: %w", err)
		}
		if _, err := tx.Exec(
			"UPDATE checklist_instances SET updated_at = ? WHERE id = ?", stamp, instanceID,
		); err != nil {
			return fmt.Errorf("updating instance: %w", err)
		}
		updated, err = getInstance(tx, instanceID)
		return err
	})
	if err != nil {
		return types.ChecklistInstance{}, fmt.Errorf("completing item %s: %w", itemID, err)
	}
	return updated, nil
}

// UncompleteItem clears one item's completion and note. Clearing an item
// that is not completed only bumps updatedAt.
func (s *Store) UncompleteItem(instanceID, itemID string) (types.ChecklistInstance, error) {
	if instanceID == "" || itemID == "" {
		return types.ChecklistInstance{}, types.ErrInvalidID
	}

	var updated types.ChecklistInstance
	err := s.withTx(func(tx *sql.Tx) error {
		inst, err := getInstance(tx, instanceID)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			"DELETE FROM checklist_completed_items WHERE instance_id = ? AND item_id = ?",
			instanceID, itemID,
		); err != nil {
			return fmt.Errorf("uncompleting item: %w", err)
		}
		if _, err := tx.Exec(
			"UPDATE checklist_instances SET updated_at = ? WHERE id = ?",
			nextStamp(inst.UpdatedAt), instanceID,
		); err != nil {
			return fmt.Errorf("updating instance: %w", err)
		}
		updated, err = getInstance(tx, instanceID)
		return err
	})
	if err != nil {
		return types.ChecklistInstance{}, fmt.Errorf("uncompleting item %s: %w", itemID, err)
	}
	return updated, nil
}

// DeleteInstance removes an instance and its completion rows. Deleting a
// missing id succeeds.
func (s *Store) DeleteInstance(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	err := s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec("DELETE FROM checklist_instances WHERE id = ?", id)
		return err
	})
	if err != nil {
		return fmt.Errorf("deleting instance %s: %w", id, err)
	}
	return nil
}

// GetInstance returns the instance with its completion state.
func (s *Store) GetInstance(id string) (types.ChecklistInstance, error) {
	if id == "" {
		return types.ChecklistInstance{}, types.ErrInvalidID
	}
	var inst types.ChecklistInstance
	err := s.withRead(func(q querier) error {
		var err error
		inst, err = getInstance(q, id)
		return err
	})
	return inst, err
}

// ListInstances returns the instances attached to attachedTo, newest created
// first.
func (s *Store) ListInstances(attachedTo string) ([]types.ChecklistInstance, error) {
	if attachedTo == "" {
		return nil, types.ErrInvalidID
	}
	var out []types.ChecklistInstance
	err := s.withRead(func(q querier) error {
		var err error
		out, err = listInstances(q, attachedTo)
		return err
	})
	return out, err
}

func getTemplate(q querier, id string) (types.ChecklistTemplate, error) {
	t, err := scanTemplate(q.QueryRow(templateSelect+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.ChecklistTemplate{}, notFound("checklist template", id)
	}
	if err != nil {
		return types.ChecklistTemplate{}, err
	}
	if t.Items, err = templateItems(q, id); err != nil {
		return types.ChecklistTemplate{}, err
	}
	return t, nil
}

func scanTemplate(row scanner) (types.ChecklistTemplate, error) {
	var (
		t           types.ChecklistTemplate
		description sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Title, &description, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.ChecklistTemplate{}, err
		}
		return types.ChecklistTemplate{}, fmt.Errorf("scanning template: %w", err)
	}
	t.Description = stringPtr(description)
	return t, nil
}

func templateItems(q querier, templateID string) ([]types.ChecklistItem, error) {
	rows, err := q.Query(`SELECT id, text, order_index FROM checklist_template_items
WHERE template_id = ? ORDER BY order_index, rowid`, templateID)
	if err != nil {
		return nil, fmt.Errorf("loading items for template %s: %w", templateID, err)
	}
	defer rows.Close()

	items := []types.ChecklistItem{}
	for rows.Next() {
		var it types.ChecklistItem
		if err := rows.Scan(&it.ID, &it.Text, &it.Order); err != nil {
			return nil, fmt.Errorf("scanning template item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// writeTemplateItems makes the template's items exactly inputs. Kept ids
// are updated in place so completions recorded against them survive. An id
// owned by another template is a constraint violation.
func writeTemplateItems(tx *sql.Tx, templateID string, inputs []types.ChecklistItemInput) error {
	keep := make([]string, 0, len(inputs))
	items := make([]types.ChecklistItem, 0, len(inputs))
	for i, in := range inputs {
		it := types.ChecklistItem{ID: in.ID, Text: in.Text, Order: i}
		if it.ID == "" {
			it.ID = newID()
		}
		if in.Order != nil {
			it.Order = *in.Order
		}
		if slices.Contains(keep, it.ID) {
			return violation("item %s listed twice", it.ID)
		}
		keep = append(keep, it.ID)
		items = append(items, it)
	}

	existing, err := queryStrings(tx, "SELECT id FROM checklist_template_items WHERE template_id = ?", templateID)
	if err != nil {
		return fmt.Errorf("loading items: %w", err)
	}
	for _, id := range existing {
		if slices.Contains(keep, id) {
			continue
		}
		if _, err := tx.Exec("DELETE FROM checklist_template_items WHERE id = ?", id); err != nil {
			return fmt.Errorf("removing item %s: %w", id, err)
		}
	}

	for _, it := range items {
		var owner string
		err := tx.QueryRow("SELECT template_id FROM checklist_template_items WHERE id = ?", it.ID).Scan(&owner)
		if err == nil && owner != templateID {
			return violation("item %s belongs to template %s", it.ID, owner)
		}
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("checking item %s: %w", it.ID, err)
		}
		if _, err := tx.Exec(`INSERT INTO checklist_template_items (id, template_id, text, order_index)
VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET text = excluded.text, order_index = excluded.order_index`,
			it.ID, templateID, it.Text, it.Order,
		); err != nil {
			return fmt.Errorf("writing item %s: %w", it.ID, err)
		}
	}
	return nil
}

func getInstance(q querier, id string) (types.ChecklistInstance, error) {
	inst, err := scanInstance(q.QueryRow(instanceSelect+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.ChecklistInstance{}, notFound("checklist instance", id)
	}
	if err != nil {
		return types.ChecklistInstance{}, err
	}
	if err := hydrateInstance(q, &inst); err != nil {
		return types.ChecklistInstance{}, err
	}
	return inst, nil
}

func listInstances(q querier, attachedTo string) ([]types.ChecklistInstance, error) {
	rows, err := q.Query(instanceSelect+" WHERE attached_to = ? ORDER BY created_at DESC, id DESC", attachedTo)
	if err != nil {
		return nil, fmt.Errorf("listing instances: %w", err)
	}
	out := []types.ChecklistInstance{}
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range out {
		if err := hydrateInstance(q, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func scanInstance(row scanner) (types.ChecklistInstance, error) {
	var inst types.ChecklistInstance
	err := row.Scan(&inst.ID, &inst.TemplateID, &inst.AttachedTo, &inst.AttachedType,
		&inst.CreatedAt, &inst.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.ChecklistInstance{}, err
		}
		return types.ChecklistInstance{}, fmt.Errorf("scanning instance: %w", err)
	}
	return inst, nil
}

// hydrateInstance loads completed items in completion order, with their
// notes and completion times.
func hydrateInstance(q querier, inst *types.ChecklistInstance) error {
	rows, err := q.Query(`SELECT item_id, note, completed_at FROM checklist_completed_items
WHERE instance_id = ? ORDER BY completed_at, rowid`, inst.ID)
	if err != nil {
		return fmt.Errorf("loading completions for instance %s: %w", inst.ID, err)
	}
	defer rows.Close()

	inst.CompletedItems = []string{}
	inst.Notes = map[string]string{}
	inst.CompletedAt = map[string]int64{}
	for rows.Next() {
		var (
			itemID string
			note   sql.NullString
			at     int64
		)
		if err := rows.Scan(&itemID, &note, &at); err != nil {
			return fmt.Errorf("scanning completion: %w", err)
		}
		inst.CompletedItems = append(inst.CompletedItems, itemID)
		if note.Valid && note.String != "" {
			inst.Notes[itemID] = note.String
		}
		inst.CompletedAt[itemID] = at
	}
	return rows.Err()
}

// writeCompletedItems makes the instance's completed set exactly itemIDs.
// Items completed before keep their completion time.
func writeCompletedItems(tx *sql.Tx, instanceID, templateID string, itemIDs []string, notes map[string]string, stamp int64) error {
	if err := checkItemsBelong(tx, templateID, itemIDs); err != nil {
		return err
	}

	previous := map[string]int64{}
	rows, err := tx.Query(
		"SELECT item_id, completed_at FROM checklist_completed_items WHERE instance_id = ?", instanceID)
	if err != nil {
		return fmt.Errorf("loading completions: %w", err)
	}
	for rows.Next() {
		var (
			itemID string
			at     int64
		)
		if err := rows.Scan(&itemID, &at); err != nil {
			rows.Close()
			return fmt.Errorf("scanning completion: %w", err)
		}
		previous[itemID] = at
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	if _, err := tx.Exec("DELETE FROM checklist_completed_items WHERE instance_id = ?", instanceID); err != nil {
		return fmt.Errorf("clearing completions: %w", err)
	}
	for _, itemID := range itemIDs {
		at, ok := previous[itemID]
		if !ok {
			at = stamp
		}
		if _, err := tx.Exec(`INSERT INTO checklist_completed_items (instance_id, item_id, note, completed_at)
VALUES (?, ?, ?, ?)`,
			instanceID, itemID, noteColumn(notes[itemID]), at,
		); err != nil {
			return fmt.Errorf("completing item %s: %w", itemID, err)
		}
	}
	return nil
}

// checkItemsBelong rejects item ids that are not items of templateID.
func checkItemsBelong(q querier, templateID string, itemIDs []string) error {
	for _, itemID := range itemIDs {
		ok, err := exists(q,
			"SELECT 1 FROM checklist_template_items WHERE id = ? AND template_id = ?", itemID, templateID)
		if err != nil {
			return fmt.Errorf("checking item %s: %w", itemID, err)
		}
		if !ok {
			return violation("item %s is not part of template %s", itemID, templateID)
		}
	}
	return nil
}

// checkTarget rejects an attachment target that does not exist. The target
// column is polymorphic, so no foreign key covers it.
func checkTarget(q querier, attachedType, id string) error {
	query := "SELECT 1 FROM processes WHERE id = ?"
	if attachedType == types.AttachedToNote {
		query = "SELECT 1 FROM notes WHERE id = ?"
	}
	ok, err := exists(q, query, id)
	if err != nil {
		return fmt.Errorf("checking %s %s: %w", attachedType, id, err)
	}
	if !ok {
		return violation("%s %s does not exist", attachedType, id)
	}
	return nil
}

func noteColumn(note string) sql.NullString {
	return sql.NullString{String: note, Valid: note != ""}
}
