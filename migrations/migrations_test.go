package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptsAreEmbedded(t *testing.T) {
	my, err := MySQL()
	require.NoError(t, err)
	require.NotEmpty(t, my)
	assert.Equal(t, "mysql/001_init.sql", my[0].Name)
	assert.Contains(t, my[0].SQL, "CREATE TABLE IF NOT EXISTS serials")

	ch, err := ClickHouse()
	require.NoError(t, err)
	require.NotEmpty(t, ch)
	assert.Contains(t, ch[0].SQL, "ReplacingMergeTree")
}

func TestStatements(t *testing.T) {
	ch, err := ClickHouse()
	require.NoError(t, err)

	stmts := ch[0].Statements()
	require.Len(t, stmts, 2)
	assert.True(t, strings.HasPrefix(stmts[0], "CREATE DATABASE"))
	assert.False(t, strings.HasSuffix(stmts[1], ";"))
}
