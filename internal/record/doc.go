// Package record defines the basic data model for fixture building:
// record types, entities, and identities.
//
// An Entity is a mutable field/value container of a given RecordType.
// It gains an Identity either when the backing store persists it or
// when the mock store generates a synthetic one. Until then the
// identity is unset, and most of the dependency-resolution machinery
// keys off that distinction.
//
// Value comparison throughout the system (discovery keys, mock store
// filters, external-id matching) goes through Canonical(), which
// produces an NFC-normalized string form so that logically equal
// values compare equal regardless of their Go type or Unicode
// representation.
package record
