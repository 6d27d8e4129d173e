// Package domain holds the typed identifiers shared across the service.
//
// IDs are distinct types over uuid.UUID so a vendor mapping ID can never be
// passed where a template ID is expected. Parse functions enforce the
// "valid, non-empty, non-nil UUID" invariant at trust boundaries (HTTP
// handlers, store scans); everything past those boundaries works with the
// typed values.
package domain

import (
	"github.com/google/uuid"

	dErrors "templatehub/pkg/domain-errors"
)

// TemplateID identifies a logical master template. It is stable across all
// versions of one template.
type TemplateID uuid.UUID

// VendorID identifies a single vendor mapping row.
type VendorID uuid.UUID

// NewTemplateID returns a fresh random template ID.
func NewTemplateID() TemplateID {
	return TemplateID(uuid.New())
}

// NewVendorID returns a fresh random vendor mapping ID.
func NewVendorID() VendorID {
	return VendorID(uuid.New())
}

// ParseTemplateID validates and converts a string into a TemplateID.
func ParseTemplateID(s string) (TemplateID, error) {
	id, err := parseUUID(s)
	if err != nil {
		return TemplateID{}, err
	}
	return TemplateID(id), nil
}

// ParseVendorID validates and converts a string into a VendorID.
func ParseVendorID(s string) (VendorID, error) {
	id, err := parseUUID(s)
	if err != nil {
		return VendorID{}, err
	}
	return VendorID(id), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is required")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if id == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return id, nil
}

func (id TemplateID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the ID is the zero value.
func (id TemplateID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id VendorID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the ID is the zero value.
func (id VendorID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
