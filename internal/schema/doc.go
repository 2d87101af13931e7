// Package schema holds the static metadata registry for record types.
//
// The registry answers the structural questions the build machinery asks
// at runtime: which table a type maps to, which of its fields are
// relationship fields and what type they point at, which field carries
// the externally-unique business identifier, and which fields should be
// watched for discovery by default. Registering this metadata once up
// front avoids constructing throwaway narrative instances just to read
// their type information.
//
// Metadata can be registered programmatically or loaded from a CUE
// catalog file (see LoadCatalog).
package schema
