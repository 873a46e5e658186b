package document

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPreviewRoundTrip(t *testing.T) {
	data, err := RenderPreview(Preview{
		FileID:    "abc123",
		FileName:  "invoice.pdf",
		Channel:   "kivra",
		Status:    "approved",
		Recipient: "User1000",
		Generated: time.Unix(1700000000, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))

	pages, err := PageCount(data)
	require.NoError(t, err)
	assert.Equal(t, 1, pages)

	text, err := ExtractText(data)
	require.NoError(t, err)
	assert.Contains(t, text, "abc123")
}

func TestRenderPreviewNordicNames(t *testing.T) {
	data, err := RenderPreview(Preview{
		FileID:    "def456",
		FileName:  "Årsbesked Göteborg.pdf",
		Channel:   "email",
		Recipient: "Åsa Lindström",
		Generated: time.Unix(1700000000, 0),
	})
	require.NoError(t, err)

	text, err := ExtractText(data)
	require.NoError(t, err)
	assert.Contains(t, text, "Göteborg")
	assert.Contains(t, text, "Lindström")
	assert.NotContains(t, text, "Ã")
}

func TestPageCountRejectsGarbage(t *testing.T) {
	_, err := PageCount([]byte("not a pdf"))
	assert.Error(t, err)
}

func TestPreviewName(t *testing.T) {
	assert.Equal(t, "invoice - preview.pdf", PreviewName("invoice.pdf"))
	assert.Equal(t, "archive.tar - preview.pdf", PreviewName("archive.tar.gz"))
	assert.Equal(t, "noext - preview.pdf", PreviewName("noext"))
	assert.Equal(t, "Årsbesked - preview.pdf", PreviewName("Årsbesked.pdf"))
}
