package ipc

import (
	"encoding/base64"
	"encoding/json"

	"github.com/mesh-intelligence/processflow/pkg/types"
)

type idPayload struct {
	ID string `json:"id" validate:"required"`
}

type updatePayload[P any] struct {
	ID   string `json:"id" validate:"required"`
	Data P      `json:"data"`
}

type processListPayload struct {
	ParentID types.Optional[*string] `json:"parentId"`
}

type connectionCreatePayload struct {
	SourceID string                 `json:"sourceId" validate:"required"`
	TargetID string                 `json:"targetId" validate:"required"`
	Label    *string                `json:"label"`
	Type     string                 `json:"type" validate:"omitempty,oneof=default conditional parallel"`
	Style    *types.ConnectionStyle `json:"style"`
}

type connectionListPayload struct {
	ProcessID string `json:"processId"`
}

type searchPayload struct {
	Query string `json:"query"`
}

type instanceCreatePayload struct {
	TemplateID     string            `json:"templateId" validate:"required"`
	AttachedTo     string            `json:"attachedTo" validate:"required"`
	AttachedType   string            `json:"attachedType" validate:"required,oneof=process note"`
	CompletedItems []string          `json:"completedItems"`
	Notes          map[string]string `json:"notes"`
}

type instanceListPayload struct {
	AttachedTo string `json:"attachedTo" validate:"required"`
}

type itemPayload struct {
	InstanceID string `json:"instanceId" validate:"required"`
	ItemID     string `json:"itemId" validate:"required"`
	Note       string `json:"note"`
}

type mediaSavePayload struct {
	Filename     string               `json:"filename" validate:"required"`
	Data         string               `json:"data"`
	MimeType     string               `json:"mimeType"`
	AttachedTo   string               `json:"attachedTo" validate:"required_with=AttachedType"`
	AttachedType string               `json:"attachedType" validate:"omitempty,oneof=process note"`
	Metadata     *types.MediaMetadata `json:"metadata"`
}

type mediaListPayload struct {
	AttachedTo string `json:"attachedTo"`
}

type attachPayload struct {
	MediaID    string `json:"mediaId" validate:"required"`
	TargetID   string `json:"targetId" validate:"required"`
	TargetType string `json:"targetType" validate:"required,oneof=process note"`
}

type detachPayload struct {
	MediaID  string `json:"mediaId" validate:"required"`
	TargetID string `json:"targetId" validate:"required"`
}

type exportPayload struct {
	Format string `json:"format" validate:"required,oneof=json sql"`
	Path   string `json:"path"`
}

type importPayload struct {
	Path string `json:"path" validate:"required_without=Data"`
	Data string `json:"data" validate:"required_without=Path"`
	Mode string `json:"mode" validate:"required,oneof=merge replace"`
}

// exportResult is the app:export result. Path is set when the export was
// written to disk, Data otherwise.
type exportResult struct {
	Format string `json:"format"`
	Path   string `json:"path,omitempty"`
	Data   string `json:"data,omitempty"`
}

// mediaContentResult carries media bytes as base64 text.
type mediaContentResult struct {
	File types.MediaFile `json:"file"`
	Data string          `json:"data"`
}

func (s *Service) registerProcesses() {
	st := s.store
	s.register("process:create", bind(s, func(p types.ProcessPatch) (any, error) {
		return st.CreateProcess(p)
	}))
	s.register("process:update", bind(s, func(p updatePayload[types.ProcessPatch]) (any, error) {
		return st.UpdateProcess(p.ID, p.Data)
	}))
	s.register("process:delete", bind(s, func(p idPayload) (any, error) {
		return done(st.DeleteProcess(p.ID))
	}))
	s.register("process:get", bind(s, func(p idPayload) (any, error) {
		return st.GetProcess(p.ID)
	}))
	s.register("process:list", bind(s, func(p processListPayload) (any, error) {
		return list(st.ListProcesses(types.ParentFilterFrom(p.ParentID)))
	}))
	s.register("process:getWithRelations", bind(s, func(p idPayload) (any, error) {
		return st.GetProcessWithRelations(p.ID)
	}))

	s.register("process:createConnection", bind(s, func(p connectionCreatePayload) (any, error) {
		patch := types.ConnectionPatch{
			SourceID: types.Some(p.SourceID),
			TargetID: types.Some(p.TargetID),
			Label:    types.Some(p.Label),
			Style:    types.Some(p.Style),
		}
		if p.Type != "" {
			patch.Type = types.Some(p.Type)
		}
		return st.CreateConnection(patch)
	}))
	s.register("process:updateConnection", bind(s, func(p updatePayload[types.ConnectionPatch]) (any, error) {
		return st.UpdateConnection(p.ID, p.Data)
	}))
	s.register("process:deleteConnection", bind(s, func(p idPayload) (any, error) {
		return done(st.DeleteConnection(p.ID))
	}))
	s.register("process:getConnections", bind(s, func(p connectionListPayload) (any, error) {
		return list(st.ListConnections(p.ProcessID))
	}))
}

func (s *Service) registerNotes() {
	st := s.store
	s.register("note:create", bind(s, func(p types.NotePatch) (any, error) {
		return st.CreateNote(p)
	}))
	s.register("note:update", bind(s, func(p updatePayload[types.NotePatch]) (any, error) {
		return st.UpdateNote(p.ID, p.Data)
	}))
	s.register("note:delete", bind(s, func(p idPayload) (any, error) {
		return done(st.DeleteNote(p.ID))
	}))
	s.register("note:get", bind(s, func(p idPayload) (any, error) {
		return st.GetNote(p.ID)
	}))
	s.register("note:list", func(json.RawMessage) (any, error) {
		return list(st.ListNotes())
	})
	s.register("note:search", bind(s, func(p searchPayload) (any, error) {
		return list(st.SearchNotes(p.Query))
	}))
}

func (s *Service) registerChecklists() {
	st := s.store
	s.register("checklist:createTemplate", bind(s, func(p types.TemplatePatch) (any, error) {
		return st.CreateTemplate(p)
	}))
	s.register("checklist:updateTemplate", bind(s, func(p updatePayload[types.TemplatePatch]) (any, error) {
		return st.UpdateTemplate(p.ID, p.Data)
	}))
	s.register("checklist:deleteTemplate", bind(s, func(p idPayload) (any, error) {
		return done(st.DeleteTemplate(p.ID))
	}))
	s.register("checklist:getTemplate", bind(s, func(p idPayload) (any, error) {
		return st.GetTemplate(p.ID)
	}))
	s.register("checklist:listTemplates", func(json.RawMessage) (any, error) {
		return list(st.ListTemplates())
	})

	s.register("checklist:createInstance", bind(s, func(p instanceCreatePayload) (any, error) {
		return st.CreateInstance(types.InstancePatch{
			TemplateID:     types.Some(p.TemplateID),
			AttachedTo:     types.Some(p.AttachedTo),
			AttachedType:   types.Some(p.AttachedType),
			CompletedItems: types.Some(p.CompletedItems),
			Notes:          types.Some(p.Notes),
		})
	}))
	s.register("checklist:updateInstance", bind(s, func(p updatePayload[types.InstancePatch]) (any, error) {
		return st.UpdateInstance(p.ID, p.Data)
	}))
	s.register("checklist:deleteInstance", bind(s, func(p idPayload) (any, error) {
		return done(st.DeleteInstance(p.ID))
	}))
	s.register("checklist:getInstance", bind(s, func(p idPayload) (any, error) {
		return st.GetInstance(p.ID)
	}))
	s.register("checklist:getInstances", bind(s, func(p instanceListPayload) (any, error) {
		return list(st.ListInstances(p.AttachedTo))
	}))
	s.register("checklist:completeItem", bind(s, func(p itemPayload) (any, error) {
		return st.CompleteItem(p.InstanceID, p.ItemID, p.Note)
	}))
	s.register("checklist:uncompleteItem", bind(s, func(p itemPayload) (any, error) {
		return st.UncompleteItem(p.InstanceID, p.ItemID)
	}))
}

func (s *Service) registerMedia() {
	st := s.store
	s.register("media:save", bind(s, func(p mediaSavePayload) (any, error) {
		data, err := base64.StdEncoding.DecodeString(p.Data)
		if err != nil {
			return nil, ValidationErrors{{Field: "data", Tag: "base64"}}
		}
		return st.SaveMedia(types.MediaUpload{
			Filename:     p.Filename,
			Data:         data,
			MimeType:     p.MimeType,
			AttachedTo:   p.AttachedTo,
			AttachedType: p.AttachedType,
			Metadata:     p.Metadata,
		})
	}))
	s.register("media:get", bind(s, func(p idPayload) (any, error) {
		mc, err := st.GetMedia(p.ID)
		if err != nil {
			return nil, err
		}
		return mediaContentResult{File: mc.File, Data: base64.StdEncoding.EncodeToString(mc.Data)}, nil
	}))
	s.register("media:delete", bind(s, func(p idPayload) (any, error) {
		return done(st.DeleteMedia(p.ID))
	}))
	s.register("media:list", bind(s, func(p mediaListPayload) (any, error) {
		return list(st.ListMedia(p.AttachedTo))
	}))
	s.register("media:attach", bind(s, func(p attachPayload) (any, error) {
		return st.AttachMedia(p.MediaID, p.TargetID, p.TargetType)
	}))
	s.register("media:detach", bind(s, func(p detachPayload) (any, error) {
		return done(st.DetachMedia(p.MediaID, p.TargetID))
	}))
}

func (s *Service) registerApp() {
	st := s.store
	s.register("app:getSettings", func(json.RawMessage) (any, error) {
		return st.GetSettings()
	})
	s.register("app:updateSettings", bind(s, func(p types.Settings) (any, error) {
		return st.UpdateSettings(p)
	}))
	s.register("app:export", bind(s, func(p exportPayload) (any, error) {
		format := types.Format(p.Format)
		if p.Path != "" {
			if err := st.ExportToFile(format, p.Path); err != nil {
				return nil, err
			}
			return exportResult{Format: p.Format, Path: p.Path}, nil
		}
		blob, err := st.Export(format)
		if err != nil {
			return nil, err
		}
		return exportResult{Format: p.Format, Data: string(blob)}, nil
	}))
	s.register("app:import", bind(s, func(p importPayload) (any, error) {
		mode := types.ImportMode(p.Mode)
		if p.Path != "" {
			return done(st.ImportFromFile(p.Path, mode))
		}
		return done(st.Import([]byte(p.Data), mode))
	}))
}

// list keeps empty results encoding as [] rather than null.
func list[T any](items []T, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}
