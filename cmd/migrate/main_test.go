package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	t.Run("按分号分割并去掉注释", func(t *testing.T) {
		sql := "-- 来信表\nCREATE TABLE a (id INT);\n\n-- 索引\nCREATE INDEX i ON a (id);\n"
		stmts := splitStatements(sql)
		require.Len(t, stmts, 2)
		assert.Equal(t, "CREATE TABLE a (id INT);", stmts[0])
		assert.Equal(t, "CREATE INDEX i ON a (id);", stmts[1])
	})

	t.Run("忽略字符串中的分号", func(t *testing.T) {
		stmts := splitStatements("INSERT INTO a VALUES ('x;y');\nSELECT 1;")
		require.Len(t, stmts, 2)
		assert.Contains(t, stmts[0], "'x;y'")
	})

	t.Run("末尾缺少分号", func(t *testing.T) {
		stmts := splitStatements("SELECT 1")
		assert.Equal(t, []string{"SELECT 1"}, stmts)
	})
}

func TestMigrationFiles(t *testing.T) {
	for _, dbType := range []string{"postgres", "mysql"} {
		t.Run(dbType, func(t *testing.T) {
			up, err := migrationFiles(dbType, "up")
			require.NoError(t, err)
			require.NotEmpty(t, up)

			content, err := migrationFS.ReadFile(up[0])
			require.NoError(t, err)
			stmts := splitStatements(string(content))
			joined := strings.Join(stmts, "\n")
			assert.Contains(t, joined, "CREATE TABLE IF NOT EXISTS contacts")
			assert.Contains(t, joined, "CREATE TABLE IF NOT EXISTS replies")

			down, err := migrationFiles(dbType, "down")
			require.NoError(t, err)
			require.NotEmpty(t, down)
		})
	}

	t.Run("不支持的数据库", func(t *testing.T) {
		_, err := migrationFiles("oracle", "up")
		assert.Error(t, err)
	})
}
