package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stagehand/internal/depgraph"
	"github.com/roach88/stagehand/internal/discovery"
	"github.com/roach88/stagehand/internal/record"
	"github.com/roach88/stagehand/internal/schema"
	"github.com/roach88/stagehand/internal/testutil"
)

func newTestSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	reg := schema.NewRegistry()
	require.NoError(t, testutil.CRMRegistry(reg.Register))
	return New(reg, opts...)
}

// captureUOW records the plan it was given and stamps identities the
// way a real commit would.
type captureUOW struct {
	plan *CommitPlan
	err  error
}

func (u *captureUOW) Commit(_ context.Context, plan *CommitPlan) error {
	if u.err != nil {
		return u.err
	}
	u.plan = plan
	n := 0
	for _, batch := range plan.Batches {
		for _, b := range batch.Builders {
			if b.GetIdentity() == "" {
				n++
				b.GetEntity().SetIdentity(record.Identity(fmt.Sprintf("committed-%d", n)))
			}
		}
	}
	return nil
}

type noopFinder struct{ calls int }

func (f *noopFinder) FindExisting(context.Context, record.RecordType, map[string][]any) ([]discovery.ExistingRecord, error) {
	f.calls++
	return nil, nil
}

func TestSession_Persist_NoUnitOfWork(t *testing.T) {
	sess := newTestSession(t)
	err := sess.Persist(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no unit of work")
}

func TestSession_Persist_BatchesInDependencyOrder(t *testing.T) {
	uow := &captureUOW{}
	sess := newTestSession(t, WithUnitOfWork(uow))

	// Creation order is deliberately child-first.
	opportunity := sess.NewBuilder("Opportunity")
	contact := sess.NewBuilder("Contact")
	account := sess.NewBuilder("Account")
	contact.SetParent("AccountId", account)
	opportunity.SetParent("ContactId", contact)

	require.NoError(t, sess.Persist(context.Background()))
	require.NotNil(t, uow.plan)

	var order []record.RecordType
	for _, batch := range uow.plan.Batches {
		order = append(order, batch.Type)
	}
	assert.Equal(t, []record.RecordType{"Account", "Contact", "Opportunity"}, order)
}

func TestSession_Persist_SetupBatchesFirst(t *testing.T) {
	uow := &captureUOW{}
	sess := newTestSession(t, WithUnitOfWork(uow))

	account := sess.NewBuilder("Account")
	user := sess.NewBuilder("User") // setup partition per registry
	account.SetParent("OwnerId", user)

	require.NoError(t, sess.Persist(context.Background()))
	require.Len(t, uow.plan.Batches, 2)
	assert.True(t, uow.plan.Batches[0].Setup)
	assert.Equal(t, record.RecordType("User"), uow.plan.Batches[0].Type)
	assert.Equal(t, record.RecordType("Account"), uow.plan.Batches[1].Type)
}

func TestSession_Persist_ExcludesUnregistered(t *testing.T) {
	uow := &captureUOW{}
	sess := newTestSession(t, WithUnitOfWork(uow))

	kept := sess.NewBuilder("Account")
	dropped := sess.NewBuilder("Account")
	dropped.UnregisterIncludingParents()

	require.NoError(t, sess.Persist(context.Background()))
	require.Len(t, uow.plan.Batches, 1)
	require.Len(t, uow.plan.Batches[0].Builders, 1)
	assert.Same(t, kept, uow.plan.Batches[0].Builders[0])
	assert.Empty(t, dropped.GetIdentity())
}

func TestSession_Persist_CyclicTypesFail(t *testing.T) {
	reg := schema.NewRegistry()
	require.NoError(t, reg.Register(schema.TypeInfo{
		Type: "A", Table: "a",
		Relationships: map[string]record.RecordType{"BId": "B"},
	}))
	require.NoError(t, reg.Register(schema.TypeInfo{
		Type: "B", Table: "b",
		Relationships: map[string]record.RecordType{"AId": "A"},
	}))
	uow := &captureUOW{}
	sess := New(reg, WithUnitOfWork(uow))

	a := sess.NewBuilder("A")
	b := sess.NewBuilder("B")
	a.SetParent("BId", b)
	b.SetParent("AId", a)

	err := sess.Persist(context.Background())
	require.Error(t, err)

	var cycErr *depgraph.CyclicDependencyError
	assert.ErrorAs(t, err, &cycErr)
	assert.Nil(t, uow.plan, "commit must not run after a cycle")
}

func TestSession_Persist_RunsFinderFirst(t *testing.T) {
	finder := &noopFinder{}
	uow := &captureUOW{}
	sess := newTestSession(t, WithFinder(finder), WithUnitOfWork(uow))

	b := sess.NewBuilder("Account")
	b.SetField("Name", "Acme")

	require.NoError(t, sess.Persist(context.Background()))
	assert.Equal(t, 1, finder.calls)
}

func TestSession_Persist_CommitErrorPropagates(t *testing.T) {
	uow := &captureUOW{err: fmt.Errorf("disk full")}
	sess := newTestSession(t, WithUnitOfWork(uow))
	sess.NewBuilder("Account")

	err := sess.Persist(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestSession_Mock_Pipeline(t *testing.T) {
	sess := newTestSession(t, WithIdentityGenerator(testutil.NewSequenceGenerator()))

	account := sess.NewBuilder("Account")
	account.SetField("Name", "Acme")
	contact := sess.NewBuilder("Contact")
	contact.SetParent("AccountId", account)

	require.NoError(t, sess.Mock(context.Background()))

	data := sess.MockData()
	require.NotNil(t, data)
	require.Len(t, data.Retrieve("Account"), 1)
	require.Len(t, data.Retrieve("Contact"), 1)

	v, ok := contact.GetEntity().Get("AccountId")
	require.True(t, ok)
	assert.Equal(t, account.GetIdentity(), v)
}

func TestSession_Mock_ExcludesUnregistered(t *testing.T) {
	sess := newTestSession(t, WithIdentityGenerator(testutil.NewSequenceGenerator()))

	sess.NewBuilder("Account")
	dropped := sess.NewBuilder("Account")
	dropped.UnregisterIncludingParents()

	require.NoError(t, sess.Mock(context.Background()))
	assert.Len(t, sess.MockData().Retrieve("Account"), 1)
}

func TestSession_MockData_NilBeforeMock(t *testing.T) {
	sess := newTestSession(t)
	assert.Nil(t, sess.MockData())
}
