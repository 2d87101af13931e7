// Package testutil provides deterministic helpers shared across tests.
package testutil

import (
	"fmt"
	"strings"
	"sync"

	"github.com/roach88/stagehand/internal/record"
	"github.com/roach88/stagehand/internal/schema"
)

// SequenceGenerator produces predictable per-type identities for tests,
// e.g. "account-001", "account-002", "user-001".
//
// Unlike the UUID generator, it can be reset for test reuse so the same
// scenario produces identical identities every run.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type SequenceGenerator struct {
	mu   sync.Mutex
	seqs map[record.RecordType]int
}

// NewSequenceGenerator creates a generator with all sequences at 0.
//
// The first identity for each type ends in -001.
func NewSequenceGenerator() *SequenceGenerator {
	return &SequenceGenerator{seqs: make(map[record.RecordType]int)}
}

// Next returns the next identity for the type.
func (g *SequenceGenerator) Next(t record.RecordType) record.Identity {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seqs[t]++
	return record.Identity(fmt.Sprintf("%s-%03d", strings.ToLower(string(t)), g.seqs[t]))
}

// Reset returns every sequence to 0.
func (g *SequenceGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seqs = make(map[record.RecordType]int)
}

// CRMRegistry returns the registry used across package tests: a small
// Account/Contact/Opportunity/User shape with discoverable names, an
// external-id on Account, and a setup-partition User type.
func CRMRegistry(register func(schema.TypeInfo) error) error {
	infos := []schema.TypeInfo{
		{
			Type:            "Account",
			Table:           "accounts",
			ExternalIDField: "AccountNumber",
			Relationships:   map[string]record.RecordType{"OwnerId": "User"},
			Discoverable:    []string{"Name"},
		},
		{
			Type:          "Contact",
			Table:         "contacts",
			Relationships: map[string]record.RecordType{"AccountId": "Account", "ReportsToId": "Contact"},
			Discoverable:  []string{"Email"},
		},
		{
			Type:          "Opportunity",
			Table:         "opportunities",
			Relationships: map[string]record.RecordType{"AccountId": "Account", "ContactId": "Contact"},
		},
		{
			Type:         "User",
			Table:        "users",
			Discoverable: []string{"Username"},
			Setup:        true,
		},
	}
	for _, info := range infos {
		if err := register(info); err != nil {
			return err
		}
	}
	return nil
}
