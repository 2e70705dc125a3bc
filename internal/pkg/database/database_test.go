package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingMigrations(t *testing.T) {
	migrations := fstest.MapFS{
		"0002_history.up.sql": {Data: []byte("SELECT 1;")},
		"0001_init.up.sql":    {Data: []byte("SELECT 1;")},
		"0001_init.down.sql":  {Data: []byte("SELECT 1;")},
		"migrations.go":       {Data: []byte("package migrations")},
		"0003_indexes.up.sql": {Data: []byte("SELECT 1;")},
	}

	tests := []struct {
		name    string
		applied map[string]bool
		want    []string
	}{
		{
			name:    "чистая база - все up миграции по порядку",
			applied: map[string]bool{},
			want:    []string{"0001_init.up.sql", "0002_history.up.sql", "0003_indexes.up.sql"},
		},
		{
			name:    "часть уже применена",
			applied: map[string]bool{"0001_init": true, "0002_history": true},
			want:    []string{"0003_indexes.up.sql"},
		},
		{
			name:    "все применены",
			applied: map[string]bool{"0001_init": true, "0002_history": true, "0003_indexes": true},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PendingMigrations(migrations, tt.applied)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
