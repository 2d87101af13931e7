package mockstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stagehand/internal/builder"
	"github.com/roach88/stagehand/internal/mockstore"
	"github.com/roach88/stagehand/internal/record"
	"github.com/roach88/stagehand/internal/schema"
	"github.com/roach88/stagehand/internal/session"
	"github.com/roach88/stagehand/internal/testutil"
)

func newSession(t *testing.T) *session.Session {
	t.Helper()
	reg := schema.NewRegistry()
	require.NoError(t, testutil.CRMRegistry(reg.Register))
	return session.New(reg)
}

func newStore() *mockstore.Store {
	return mockstore.NewWithGenerator(testutil.NewSequenceGenerator())
}

func TestStore_GenerateID_IdempotentOnSameEntity(t *testing.T) {
	store := newStore()
	e := record.NewEntity("Account")

	store.GenerateID(e)
	first := e.Identity()
	require.NotEmpty(t, first)

	store.GenerateID(e)
	assert.Equal(t, first, e.Identity(), "second call must be a no-op")
}

func TestStore_GenerateIDs_UniquePerEntity(t *testing.T) {
	sess := newSession(t)
	a := sess.NewBuilder("Account")
	b := sess.NewBuilder("Account")

	store := newStore()
	store.GenerateIDs([]builder.Builder{a, b})

	assert.NotEmpty(t, a.GetIdentity())
	assert.NotEmpty(t, b.GetIdentity())
	assert.NotEqual(t, a.GetIdentity(), b.GetIdentity())
}

func TestStore_GenerateIDs_UUIDDefault(t *testing.T) {
	sess := newSession(t)
	a := sess.NewBuilder("Account")

	store := mockstore.New()
	store.GenerateIDs([]builder.Builder{a})
	assert.NotEmpty(t, a.GetIdentity())
}

func TestStore_GenerateRelationships_ParentLinks(t *testing.T) {
	sess := newSession(t)
	account := sess.NewBuilder("Account")
	contact := sess.NewBuilder("Contact")
	contact.SetParent("AccountId", account)

	builders := []builder.Builder{account, contact}
	store := newStore()
	store.GenerateIDs(builders)
	store.GenerateRelationships(sess.Discovery(), builders)

	v, ok := contact.GetEntity().Get("AccountId")
	require.True(t, ok)
	assert.Equal(t, account.GetIdentity(), v)
}

func TestStore_GenerateRelationships_ExternalReference(t *testing.T) {
	sess := newSession(t)
	account := sess.NewBuilder("Account")
	account.SetField("AccountNumber", "ACC-42")
	contact := sess.NewBuilder("Contact")
	_, err := contact.SetReference("AccountId", "AccountNumber", "ACC-42")
	require.NoError(t, err)

	builders := []builder.Builder{account, contact}
	store := newStore()
	store.GenerateIDs(builders)
	store.GenerateRelationships(sess.Discovery(), builders)

	v, ok := contact.GetEntity().Get("AccountId")
	require.True(t, ok)
	assert.Equal(t, account.GetIdentity(), v)
}

func TestStore_GenerateRelationships_UnmatchedReferenceLeftUnset(t *testing.T) {
	sess := newSession(t)
	contact := sess.NewBuilder("Contact")
	_, err := contact.SetReference("AccountId", "AccountNumber", "NO-SUCH")
	require.NoError(t, err)

	builders := []builder.Builder{contact}
	store := newStore()
	store.GenerateIDs(builders)
	store.GenerateRelationships(sess.Discovery(), builders)

	_, ok := contact.GetEntity().Get("AccountId")
	assert.False(t, ok, "unmatched reference leaves the field unset")
}

func TestStore_Store_DeduplicatesByReference(t *testing.T) {
	store := newStore()
	e := record.NewEntity("Account")
	e.Set("Name", "Acme")

	store.Store(e)
	store.Store(e)

	assert.Len(t, store.Retrieve("Account"), 1)
}

func TestStore_Store_EqualEntitiesAreDistinct(t *testing.T) {
	store := newStore()
	a := record.NewEntity("Account")
	a.Set("Name", "Acme")
	b := record.NewEntity("Account")
	b.Set("Name", "Acme")

	store.StoreAll([]*record.Entity{a, b})

	assert.Len(t, store.Retrieve("Account"), 2, "dedup is by reference, not value")
}

func TestStore_Retrieve_UnknownTypeIsNil(t *testing.T) {
	store := newStore()
	assert.Nil(t, store.Retrieve("Account"))
}

func TestStore_RetrieveByFilter(t *testing.T) {
	store := newStore()
	open := record.NewEntity("Opportunity")
	open.Set("Stage", "Open")
	open.Set("Amount", int64(100))
	won := record.NewEntity("Opportunity")
	won.Set("Stage", "Won")
	won.Set("Amount", int64(100))
	store.StoreAll([]*record.Entity{open, won})

	t.Run("conjunctive match", func(t *testing.T) {
		got := store.RetrieveByFilter("Opportunity", map[string]any{"Stage": "Won", "Amount": 100})
		require.Len(t, got, 1)
		assert.Same(t, won, got[0])
	})

	t.Run("empty match set is nil", func(t *testing.T) {
		got := store.RetrieveByFilter("Opportunity", map[string]any{"Stage": "Lost"})
		assert.Nil(t, got)
	})

	t.Run("unknown type is nil", func(t *testing.T) {
		got := store.RetrieveByFilter("Invoice", map[string]any{"Stage": "Won"})
		assert.Nil(t, got)
	})

	t.Run("empty filter returns all", func(t *testing.T) {
		got := store.RetrieveByFilter("Opportunity", map[string]any{})
		assert.Len(t, got, 2)
	})
}

func TestStore_Render_Golden(t *testing.T) {
	sess := newSession(t)
	account := sess.NewBuilder("Account")
	account.SetField("Name", "Acme")
	account.SetField("AccountNumber", "ACC-42")
	contact := sess.NewBuilder("Contact")
	contact.SetField("Email", "jo@acme.example")
	contact.SetParent("AccountId", account)

	builders := []builder.Builder{account, contact}
	store := newStore()
	store.GenerateIDs(builders)
	store.GenerateRelationships(sess.Discovery(), builders)
	store.Ingest(builders)

	testutil.AssertGolden(t, "render_crm", []byte(store.Render()))
}
