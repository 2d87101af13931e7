package scenario

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stagehand/internal/schema"
	"github.com/roach88/stagehand/internal/session"
	"github.com/roach88/stagehand/internal/testutil"
)

const acmeScenario = `
name: acme
story:
  narrators:
    - narrative: Account
      fields:
        Name: Acme
        AccountNumber: ACC-42
    - narrative: Contact
      count: 2
      fields:
        Email: jo@acme.example
      relations:
        - field: AccountId
          target: Account
          target_field: Name
          target_value: Acme
  related:
    - name: users
      narrators:
        - narrative: User
          fields:
            Username: admin
`

func crmRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg := schema.NewRegistry()
	require.NoError(t, testutil.CRMRegistry(reg.Register))
	return reg
}

func TestParse_FullDefinition(t *testing.T) {
	def, err := Parse([]byte(acmeScenario))
	require.NoError(t, err)

	assert.Equal(t, "acme", def.Name)
	require.Len(t, def.Story.Narrators, 2)
	assert.Equal(t, "Account", def.Story.Narrators[0].Narrative)
	assert.Equal(t, 2, def.Story.Narrators[1].Count)
	require.Len(t, def.Story.Narrators[1].Relations, 1)
	assert.Equal(t, "Acme", def.Story.Narrators[1].Relations[0].TargetValue)
	require.Len(t, def.Story.Related, 1)
	assert.Equal(t, "users", def.Story.Related[0].Name)
}

func TestParse_Invalid(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "malformed yaml",
			src:  "name: [unclosed",
			want: "parse scenario",
		},
		{
			name: "missing name",
			src:  "story:\n  narrators:\n    - narrative: Account\n",
			want: "name is required",
		},
		{
			name: "empty story",
			src:  "name: hollow\nstory: {}\n",
			want: "has no narrators and no related stories",
		},
		{
			name: "narrator without narrative",
			src:  "name: x\nstory:\n  narrators:\n    - count: 2\n",
			want: "has no narrative",
		},
		{
			name: "incomplete relation",
			src: "name: x\nstory:\n  narrators:\n    - narrative: Contact\n" +
				"      relations:\n        - field: AccountId\n",
			want: "needs field, target, and target_field",
		},
		{
			name: "empty related story",
			src: "name: x\nstory:\n  related:\n    - name: inner\n      related:\n" +
				"        - name: leaf\n",
			want: "story x/inner/leaf has no narrators",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read scenario")
}

func TestLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acme.yaml")
	require.NoError(t, os.WriteFile(path, []byte(acmeScenario), 0o644))

	def, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "acme", def.Name)
}

func TestAssemble_UnknownNarrativeType(t *testing.T) {
	def, err := Parse([]byte("name: x\nstory:\n  narrators:\n    - narrative: Invoice\n"))
	require.NoError(t, err)

	_, err = def.Assemble(crmRegistry(t))
	require.Error(t, err)

	var unknownErr *schema.UnknownTypeError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "Invoice", string(unknownErr.Type))
}

func TestAssemble_UnknownRelationTarget(t *testing.T) {
	src := "name: x\nstory:\n  narrators:\n    - narrative: Contact\n" +
		"      relations:\n        - field: AccountId\n          target: Invoice\n" +
		"          target_field: Name\n          target_value: Acme\n"
	def, err := Parse([]byte(src))
	require.NoError(t, err)

	_, err = def.Assemble(crmRegistry(t))
	require.Error(t, err)

	var unknownErr *schema.UnknownTypeError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "Invoice", string(unknownErr.Type))
}

func TestAssemble_ThenMock(t *testing.T) {
	def, err := Parse([]byte(acmeScenario))
	require.NoError(t, err)

	st, err := def.Assemble(crmRegistry(t))
	require.NoError(t, err)

	sess := session.New(crmRegistry(t),
		session.WithIdentityGenerator(testutil.NewSequenceGenerator()))
	require.NoError(t, st.Mock(context.Background(), sess))

	data := sess.MockData()
	require.NotNil(t, data)
	assert.Len(t, data.Retrieve("Contact"), 2)

	testutil.AssertGolden(t, "mock_acme", []byte(data.Render()))
}
