// Package scenario loads declarative story definitions from YAML.
//
// A scenario file names a story tree: narrators with record types,
// field values, repeat counts, and relations, plus related sub-stories.
// Assembling a definition against a schema registry produces a
// story.Story ready to build, using generic record narratives.
package scenario
