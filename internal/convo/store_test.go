package convo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateRewritesLegacyRole(t *testing.T) {
	t.Parallel()

	snap := &Snapshot{
		Version: 0,
		Turns: []Turn{
			{Role: RoleUser, Parts: []TextPart{{Text: "q"}}},
			{Role: legacyRoleAssistant, Parts: []TextPart{{Text: "a"}}},
		},
	}

	got := migrate(snap)
	require.Len(t, got.Turns, 2)
	assert.Equal(t, RoleUser, got.Turns[0].Role)
	assert.Equal(t, RoleModel, got.Turns[1].Role)
	assert.Equal(t, SchemaVersion, got.Version)
}

func TestMigrateCurrentVersionUntouched(t *testing.T) {
	t.Parallel()

	// A v1 snapshot containing the literal legacy word as a role must not
	// be rewritten again; the migration is one-time.
	snap := &Snapshot{
		Version: SchemaVersion,
		Turns:   []Turn{{Role: legacyRoleAssistant, Parts: []TextPart{{Text: "x"}}}},
	}

	got := migrate(snap)
	assert.Equal(t, legacyRoleAssistant, got.Turns[0].Role)
}

func TestMigrateNil(t *testing.T) {
	t.Parallel()

	got := migrate(nil)
	require.NotNil(t, got)
	assert.Equal(t, SchemaVersion, got.Version)
	assert.Empty(t, got.Turns)
}
