package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("pw123456")
	require.NoError(t, err)
	assert.NotEqual(t, "pw123456", hash)

	assert.True(t, CheckPassword(hash, "pw123456"))
	assert.False(t, CheckPassword(hash, "pw1234567"))
	assert.False(t, CheckPassword("not-a-hash", "pw123456"))
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Drill", PlainText("  <b>Drill</b> "))
	assert.Equal(t, "", PlainText("<script>alert(1)</script>"))
	assert.Equal(t, "<p>ok</p>", Sanitize(`<p onclick="x()">ok</p>`))
}
