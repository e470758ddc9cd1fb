package types

// Settings is the flat application settings mapping. Each value is stored
// as its own JSON document.
type Settings map[string]any

// SettingDefault is a seeded setting with its JSON-encoded value.
type SettingDefault struct {
	Key   string
	Value string
}

// DefaultSettings are written when the settings table is empty.
var DefaultSettings = []SettingDefault{
	{"theme", `"light"`},
	{"autoSave", `true`},
	{"autoSaveInterval", `5`},
	{"defaultProcessColor", `"#3b82f6"`},
	{"defaultFont", `"Inter"`},
	{"fontSize", `14`},
	{"showGrid", `true`},
	{"snapToGrid", `true`},
	{"gridSize", `20`},
}
