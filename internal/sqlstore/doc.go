// Package sqlstore is the reference SQLite implementation of the
// session's collaborator interfaces.
//
// It provides the existence-query Finder (one batched disjunctive
// query per record type, all values parameterized) and the commit
// UnitOfWork (ordered inserts inside a single transaction, rowid-
// derived identities stamped on success). Table names come from the
// schema registry.
//
// The database is configured the same way for every open: WAL mode,
// NORMAL synchronous, 5-second busy timeout, foreign keys on.
package sqlstore
