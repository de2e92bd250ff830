package settings

import (
	"context"
	"fmt"
	"slices"

	"github.com/heartmarshall/sketch2code/internal/domain"
)

// Validation messages, in rule order.
const (
	MsgSelectTable        = "Please select a table for sketches."
	MsgSelectField        = "Please select a field for sketches."
	MsgSelectAttachment   = "Please select an attachment field for sketches."
	MsgProvideAPIURL      = "Please provide the web API base URI for custom implementation."
	MsgProvideBlobStore   = "Please provide the URL of the blob storage used by the Sketch2Code API."
	MsgSelectPrototypeURL = "Please select a URL field for storing prototype URLs."
)

// Catalog is the part of the host catalog the resolver needs. Lookups
// return (nil, nil) for ids that do not exist.
type Catalog interface {
	TableByIDIfExists(ctx context.Context, tableID string) (*domain.Table, error)
	FieldByIDIfExists(ctx context.Context, tableID, fieldID string) (*domain.Field, error)
}

// Resolve turns raw configuration into a validated Settings snapshot.
// Deleted or unset tables and fields resolve to nil; the returned error is
// reserved for catalog failures.
func Resolve(ctx context.Context, raw domain.RawConfig, catalog Catalog) (domain.SettingsResult, error) {
	s := domain.Settings{
		IsEnforced:      raw.IsEnforced,
		IsCustomAPI:     raw.IsCustomAPI,
		CustomAPIURL:    raw.CustomAPIURL,
		CustomBlobStore: raw.CustomBlobStore,
		RestrictMode:    domain.ParseRestrictMode(raw.RestrictMode),
	}

	if raw.URLTableID != "" {
		table, err := catalog.TableByIDIfExists(ctx, raw.URLTableID)
		if err != nil {
			return domain.SettingsResult{}, fmt.Errorf("resolve url table: %w", err)
		}
		s.URLTable = table
	}

	// Fields are only looked up inside the configured table.
	if s.URLTable != nil {
		if raw.URLFieldID != "" {
			field, err := catalog.FieldByIDIfExists(ctx, s.URLTable.ID, raw.URLFieldID)
			if err != nil {
				return domain.SettingsResult{}, fmt.Errorf("resolve url field: %w", err)
			}
			s.URLField = field
		}
		if raw.PrototypeURLFieldID != "" {
			field, err := catalog.FieldByIDIfExists(ctx, s.URLTable.ID, raw.PrototypeURLFieldID)
			if err != nil {
				return domain.SettingsResult{}, fmt.Errorf("resolve prototype url field: %w", err)
			}
			s.PrototypeURLField = field
		}
	}

	msg := Validate(s)
	return domain.SettingsResult{
		IsValid:  msg == "",
		Message:  msg,
		Settings: s,
	}, nil
}

// Validate returns the message of the first violated rule, or "" when the
// snapshot is valid.
func Validate(s domain.Settings) string {
	if s.IsEnforced {
		switch {
		case s.URLTable == nil:
			return MsgSelectTable
		case s.URLField == nil:
			return MsgSelectField
		case !slices.Contains(domain.AllowedSketchFieldTypes, s.URLField.Type):
			return MsgSelectAttachment
		}
	}

	if s.IsCustomAPI {
		switch {
		case s.CustomAPIURL == "":
			return MsgProvideAPIURL
		case s.CustomBlobStore == "":
			return MsgProvideBlobStore
		}
	}

	if s.PrototypeURLField != nil && !slices.Contains(domain.AllowedPrototypeURLFieldTypes, s.PrototypeURLField.Type) {
		return MsgSelectPrototypeURL
	}

	return ""
}
