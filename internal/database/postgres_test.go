package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/migrations"
)

func TestListMigrations_OrdersAndFilters(t *testing.T) {
	fsys := fstest.MapFS{
		"010_later.sql":        {Data: []byte("SELECT 1")},
		"002_second.sql":       {Data: []byte("SELECT 1")},
		"001_first.sql":        {Data: []byte("SELECT 1")},
		"README.md":            {Data: []byte("docs")},
		"abc_not_numbered.sql": {Data: []byte("SELECT 1")},
		"000_zero_ignored.sql": {Data: []byte("SELECT 1")},
		"003_dir/inner.sql":    {Data: []byte("SELECT 1")},
	}

	got, err := listMigrations(fsys)
	require.NoError(t, err)

	var names []string
	for _, m := range got {
		names = append(names, m.name)
	}
	assert.Equal(t, []string{"001_first.sql", "002_second.sql", "010_later.sql"}, names)
}

func TestListMigrations_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"001_a.sql": {Data: []byte("SELECT 1")},
		"001_b.sql": {Data: []byte("SELECT 1")},
	}

	_, err := listMigrations(fsys)
	assert.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	got, err := listMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, 1, got[0].version)
}
