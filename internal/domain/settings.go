package domain

import "slices"

// ConfigKey names a persisted configuration value.
type ConfigKey string

const (
	ConfigKeyIsEnforced        ConfigKey = "isEnforced"
	ConfigKeyURLTableID        ConfigKey = "urlTableId"
	ConfigKeyURLFieldID        ConfigKey = "urlFieldId"
	ConfigKeyIsCustomAPI       ConfigKey = "isCustomApi"
	ConfigKeyCustomAPIURL      ConfigKey = "customApiUrl"
	ConfigKeyCustomBlobStore   ConfigKey = "customBlobStore"
	ConfigKeyPrototypeURLField ConfigKey = "prototypeUrlField"
	ConfigKeyRestrictMode      ConfigKey = "restrictMode"
)

// ConfigKeys lists every key the extension persists.
var ConfigKeys = []ConfigKey{
	ConfigKeyIsEnforced,
	ConfigKeyURLTableID,
	ConfigKeyURLFieldID,
	ConfigKeyIsCustomAPI,
	ConfigKeyCustomAPIURL,
	ConfigKeyCustomBlobStore,
	ConfigKeyPrototypeURLField,
	ConfigKeyRestrictMode,
}

func (k ConfigKey) String() string { return string(k) }

func (k ConfigKey) IsValid() bool { return slices.Contains(ConfigKeys, k) }

// IsBool reports whether the key holds a boolean switch.
func (k ConfigKey) IsBool() bool {
	return k == ConfigKeyIsEnforced || k == ConfigKeyIsCustomAPI
}

// AllowedSketchFieldTypes are the field types that can hold sketches.
var AllowedSketchFieldTypes = []FieldType{FieldTypeMultipleAttachments}

// AllowedPrototypeURLFieldTypes are the field types that can hold prototype URLs.
var AllowedPrototypeURLFieldTypes = []FieldType{FieldTypeURL, FieldTypeBarcode}

// RawConfig is the typed view of the persisted key-value configuration.
type RawConfig struct {
	IsEnforced          bool
	URLTableID          string
	URLFieldID          string
	IsCustomAPI         bool
	CustomAPIURL        string
	CustomBlobStore     string
	PrototypeURLFieldID string
	RestrictMode        string
}

// RawConfigFromValues builds a RawConfig from stored values. Missing or
// mistyped values read as their zero value.
func RawConfigFromValues(values map[ConfigKey]any) RawConfig {
	str := func(k ConfigKey) string {
		s, _ := values[k].(string)
		return s
	}
	flag := func(k ConfigKey) bool {
		b, _ := values[k].(bool)
		return b
	}
	return RawConfig{
		IsEnforced:          flag(ConfigKeyIsEnforced),
		URLTableID:          str(ConfigKeyURLTableID),
		URLFieldID:          str(ConfigKeyURLFieldID),
		IsCustomAPI:         flag(ConfigKeyIsCustomAPI),
		CustomAPIURL:        str(ConfigKeyCustomAPIURL),
		CustomBlobStore:     str(ConfigKeyCustomBlobStore),
		PrototypeURLFieldID: str(ConfigKeyPrototypeURLField),
		RestrictMode:        str(ConfigKeyRestrictMode),
	}
}

// Settings is a resolved, immutable configuration snapshot.
// Table and field references are nil when unset or deleted.
type Settings struct {
	IsEnforced        bool
	URLTable          *Table
	URLField          *Field
	PrototypeURLField *Field
	IsCustomAPI       bool
	CustomAPIURL      string
	CustomBlobStore   string
	RestrictMode      RestrictMode
}

// SettingsResult wraps a snapshot with its validation outcome.
type SettingsResult struct {
	IsValid  bool
	Message  string
	Settings Settings
}

// Err returns ErrConfigurationInvalid carrying the message, or nil when valid.
func (r SettingsResult) Err() error {
	if r.IsValid {
		return nil
	}
	return &ConfigurationError{Message: r.Message}
}
