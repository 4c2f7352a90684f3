package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPassword(t *testing.T) {
	t.Run("命令行参数优先", func(t *testing.T) {
		pw, err := readPassword([]string{"from-args"}, strings.NewReader("from-stdin\n"))
		require.NoError(t, err)
		assert.Equal(t, "from-args", pw)
	})

	t.Run("从标准输入读取", func(t *testing.T) {
		pw, err := readPassword(nil, strings.NewReader("secret-pass\r\n"))
		require.NoError(t, err)
		assert.Equal(t, "secret-pass", pw)
	})

	t.Run("没有换行的输入", func(t *testing.T) {
		pw, err := readPassword(nil, strings.NewReader("secret-pass"))
		require.NoError(t, err)
		assert.Equal(t, "secret-pass", pw)
	})

	t.Run("空输入", func(t *testing.T) {
		_, err := readPassword(nil, strings.NewReader(""))
		assert.Error(t, err)
	})
}
