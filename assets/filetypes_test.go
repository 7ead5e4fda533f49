package assets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileTypes(t *testing.T) {
	assert.True(t, IsImage("uploads/1-ab.JPG"))
	assert.True(t, IsImage("/1-ab.gif"))
	assert.False(t, IsImage("uploads/1-ab.pdf"))
	assert.False(t, IsImage("uploads/noext"))

	assert.True(t, IsManual("Manual.PDF"))
	assert.True(t, IsManual(`C:\docs\guide.docx`))
	assert.False(t, IsManual("manual.html"))
	assert.False(t, IsManual("manual.svg"))
	assert.False(t, IsManual("manual.pdf.html"))

	assert.Equal(t, ".jpeg", Ext("a.b/photo.JPEG"))
	assert.Equal(t, "", Ext("a.b/photo"))
}
