package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

const templatedMigration = `CREATE TABLE sample (id INTEGER PRIMARY KEY);
{{if eq .Dialect "mysql"}}CREATE INDEX sampleIdx ON sample (id);{{else}}-- sqlite needs no extra index{{end}}
`

func writeMigrationDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	assert.Nil(t, os.WriteFile(filepath.Join(dir, "1_sample.up.sql"), []byte(templatedMigration), 0644))
	assert.Nil(t, os.WriteFile(filepath.Join(dir, "1_sample.down.sql"), []byte("DROP TABLE sample;\n"), 0644))
	return dir
}

func TestDialectSource(t *testing.T) {
	t.Run("MySQLTemplate", func(t *testing.T) {
		dir := writeMigrationDir(t)
		src, err := NewDialectSource("file://"+dir, "mysql")
		assert.Nil(t, err)
		defer src.Close()
		first, err := src.First()
		assert.Nil(t, err)
		reader, _, err := src.ReadUp(first)
		assert.Nil(t, err)
		content, _ := io.ReadAll(reader)
		assert.Contains(t, string(content), "CREATE INDEX sampleIdx")
		assert.NotContains(t, string(content), "{{")
	})
	t.Run("SQLiteTemplate", func(t *testing.T) {
		dir := writeMigrationDir(t)
		src, err := NewDialectSource("file://"+dir, "sqlite3")
		assert.Nil(t, err)
		defer src.Close()
		first, err := src.First()
		assert.Nil(t, err)
		reader, _, err := src.ReadUp(first)
		assert.Nil(t, err)
		content, _ := io.ReadAll(reader)
		assert.NotContains(t, string(content), "CREATE INDEX sampleIdx")
		assert.Contains(t, string(content), "sqlite needs no extra index")
	})
	t.Run("PlainPassThrough", func(t *testing.T) {
		dir := writeMigrationDir(t)
		src, err := NewDialectSource("file://"+dir, "sqlite3")
		assert.Nil(t, err)
		defer src.Close()
		first, err := src.First()
		assert.Nil(t, err)
		reader, _, err := src.ReadDown(first)
		assert.Nil(t, err)
		content, _ := io.ReadAll(reader)
		assert.Equal(t, "DROP TABLE sample;\n", string(content))
	})
	t.Run("BadSourceURL", func(t *testing.T) {
		_, err := NewDialectSource("file:///definitely/not/here", "mysql")
		assert.NotNil(t, err)
	})
}
