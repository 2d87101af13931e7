package schema

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/roach88/stagehand/internal/record"
)

// CatalogError reports a problem in a CUE catalog file, with position
// information when CUE can provide it.
type CatalogError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CatalogError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadCatalog reads a CUE catalog file and returns a populated registry.
//
// The catalog declares record types under a top-level "types" struct:
//
//	types: {
//		Account: {
//			table:        "accounts"
//			externalId:   "AccountNumber"
//			discoverable: ["Name"]
//			relationships: {OwnerId: "User"}
//		}
//		User: {
//			table: "users"
//			setup: true
//		}
//	}
//
// Only "table" is required per type.
func LoadCatalog(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data, path)
}

// ParseCatalog compiles catalog source and returns a populated registry.
// The filename is used only for error positions.
func ParseCatalog(src []byte, filename string) (*Registry, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile catalog: %w", err)
	}

	typesVal := v.LookupPath(cue.ParsePath("types"))
	if !typesVal.Exists() {
		return nil, &CatalogError{Field: "types", Message: "top-level types struct is required", Pos: v.Pos()}
	}

	reg := NewRegistry()
	iter, err := typesVal.Fields()
	if err != nil {
		return nil, fmt.Errorf("iterate types: %w", err)
	}
	for iter.Next() {
		name := iter.Selector().String()
		info, err := parseTypeInfo(record.RecordType(name), iter.Value())
		if err != nil {
			return nil, err
		}
		if err := reg.Register(info); err != nil {
			return nil, fmt.Errorf("register %s: %w", name, err)
		}
	}
	return reg, nil
}

func parseTypeInfo(t record.RecordType, v cue.Value) (TypeInfo, error) {
	info := TypeInfo{
		Type:          t,
		Relationships: make(map[string]record.RecordType),
	}

	tableVal := v.LookupPath(cue.ParsePath("table"))
	if !tableVal.Exists() {
		return info, &CatalogError{Field: string(t) + ".table", Message: "table is required", Pos: v.Pos()}
	}
	table, err := tableVal.String()
	if err != nil {
		return info, &CatalogError{Field: string(t) + ".table", Message: err.Error(), Pos: tableVal.Pos()}
	}
	info.Table = table

	if extVal := v.LookupPath(cue.ParsePath("externalId")); extVal.Exists() {
		ext, err := extVal.String()
		if err != nil {
			return info, &CatalogError{Field: string(t) + ".externalId", Message: err.Error(), Pos: extVal.Pos()}
		}
		info.ExternalIDField = ext
	}

	if setupVal := v.LookupPath(cue.ParsePath("setup")); setupVal.Exists() {
		setup, err := setupVal.Bool()
		if err != nil {
			return info, &CatalogError{Field: string(t) + ".setup", Message: err.Error(), Pos: setupVal.Pos()}
		}
		info.Setup = setup
	}

	if discVal := v.LookupPath(cue.ParsePath("discoverable")); discVal.Exists() {
		list, err := discVal.List()
		if err != nil {
			return info, &CatalogError{Field: string(t) + ".discoverable", Message: err.Error(), Pos: discVal.Pos()}
		}
		for list.Next() {
			field, err := list.Value().String()
			if err != nil {
				return info, &CatalogError{Field: string(t) + ".discoverable", Message: err.Error(), Pos: list.Value().Pos()}
			}
			info.Discoverable = append(info.Discoverable, field)
		}
	}

	if relVal := v.LookupPath(cue.ParsePath("relationships")); relVal.Exists() {
		relIter, err := relVal.Fields()
		if err != nil {
			return info, &CatalogError{Field: string(t) + ".relationships", Message: err.Error(), Pos: relVal.Pos()}
		}
		for relIter.Next() {
			field := relIter.Selector().String()
			target, err := relIter.Value().String()
			if err != nil {
				return info, &CatalogError{Field: string(t) + ".relationships." + field, Message: err.Error(), Pos: relIter.Value().Pos()}
			}
			info.Relationships[field] = record.RecordType(target)
		}
	}

	return info, nil
}
