package staging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/omnigo/internal/model"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newCollector(clock *fakeClock) *Collector {
	return NewCollector(map[string][]string{
		"multi": {"pdf", "docx", "xlsx", "csv", "xml"},
		"pdf":   {".PDF"},
	}, 3*time.Second, clock.Now)
}

func TestAddRejectsDuplicateNameAndSize(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	c := newCollector(clock)

	_, err := c.Add("multi", []Incoming{{Name: "x.pdf", Size: 100}}, false)
	require.NoError(t, err)
	res, err := c.Add("multi", []Incoming{{Name: "x.pdf", Size: 100}}, false)
	require.NoError(t, err)

	assert.Empty(t, res.Added)
	assert.Equal(t, []string{"x.pdf"}, res.Duplicates)
	assert.Equal(t, `"x.pdf" is already in your upload list.`, res.Warning)

	files := c.Files()
	require.Len(t, files, 1)
	assert.Equal(t, "x.pdf", files[0].Name)
	assert.Equal(t, model.UploadPending, files[0].Status)
}

func TestAddKeepsSameNameWithDifferentSize(t *testing.T) {
	c := newCollector(&fakeClock{})

	res, err := c.Add("multi", []Incoming{{Name: "x.pdf", Size: 100}, {Name: "x.pdf", Size: 101}}, false)
	require.NoError(t, err)
	assert.Len(t, res.Added, 2)
	assert.Empty(t, res.Duplicates)
}

func TestAddDeduplicatesWithinBatch(t *testing.T) {
	c := newCollector(&fakeClock{})

	res, err := c.Add("multi", []Incoming{{Name: "a.csv", Size: 1}, {Name: "a.csv", Size: 1}}, false)
	require.NoError(t, err)
	assert.Len(t, res.Added, 1)
	assert.Equal(t, []string{"a.csv"}, res.Duplicates)
}

func TestAddReplaceExisting(t *testing.T) {
	c := newCollector(&fakeClock{})

	_, err := c.Add("multi", []Incoming{{Name: "a.pdf", Size: 1}, {Name: "b.pdf", Size: 2}}, false)
	require.NoError(t, err)
	res, err := c.Add("multi", []Incoming{{Name: "a.pdf", Size: 1}, {Name: "c.xml", Size: 3}}, true)
	require.NoError(t, err)

	assert.Len(t, res.Added, 2)
	assert.Empty(t, res.Duplicates)
	files := c.Files()
	require.Len(t, files, 2)
	assert.Equal(t, "a.pdf", files[0].Name)
	assert.Equal(t, "c.xml", files[1].Name)
	// Ids are never reused.
	assert.Greater(t, files[0].ID, int64(2))
}

func TestAddUnsupportedTypeRefusesBatch(t *testing.T) {
	c := newCollector(&fakeClock{})

	_, err := c.Add("pdf", []Incoming{{Name: "ok.pdf", Size: 1}, {Name: "sheet.xlsx", Size: 2}}, false)
	require.ErrorIs(t, err, ErrUnsupportedType)
	assert.Contains(t, err.Error(), "sheet.xlsx")
	assert.Zero(t, c.Len())

	_, err = c.Add("multi", []Incoming{{Name: "sheet.XLSX", Size: 2}}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
}

func TestAddUnknownEntry(t *testing.T) {
	c := newCollector(&fakeClock{})

	_, err := c.Add("fax", []Incoming{{Name: "a.pdf"}}, false)
	require.ErrorIs(t, err, ErrUnknownEntry)
}

func TestWarningExpires(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	c := newCollector(clock)

	_, _ = c.Add("multi", []Incoming{{Name: "x.pdf", Size: 1}}, false)
	_, _ = c.Add("multi", []Incoming{{Name: "x.pdf", Size: 1}}, false)
	assert.NotEmpty(t, c.Warning())

	clock.t = clock.t.Add(2 * time.Second)
	assert.NotEmpty(t, c.Warning())

	clock.t = clock.t.Add(time.Second)
	assert.Empty(t, c.Warning())
}

func TestDismissWarning(t *testing.T) {
	c := newCollector(&fakeClock{t: time.Unix(1000, 0)})

	_, _ = c.Add("multi", []Incoming{{Name: "x.pdf", Size: 1}}, false)
	_, _ = c.Add("multi", []Incoming{{Name: "x.pdf", Size: 1}}, false)
	c.DismissWarning()
	assert.Empty(t, c.Warning())
}

func TestRemove(t *testing.T) {
	c := newCollector(&fakeClock{})
	res, err := c.Add("multi", []Incoming{{Name: "a.pdf", Size: 1}, {Name: "b.pdf", Size: 2}}, false)
	require.NoError(t, err)

	empty, err := c.Remove(res.Added[0].ID)
	require.NoError(t, err)
	assert.False(t, empty)

	empty, err = c.Remove(res.Added[1].ID)
	require.NoError(t, err)
	assert.True(t, empty)

	_, err = c.Remove(999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSetStatusAndWithStatus(t *testing.T) {
	c := newCollector(&fakeClock{})
	res, _ := c.Add("multi", []Incoming{{Name: "a.pdf", Size: 1}, {Name: "b.pdf", Size: 2}}, false)

	require.NoError(t, c.SetStatus(res.Added[0].ID, model.UploadError))
	assert.Len(t, c.WithStatus(model.UploadError), 1)
	assert.Len(t, c.WithStatus(model.UploadPending), 1)
	require.ErrorIs(t, c.SetStatus(42, model.UploadCompleted), ErrNotFound)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "pdf", Extension("Report.PDF"))
	assert.Equal(t, "gz", Extension("logs.tar.gz"))
	assert.Equal(t, "", Extension("README"))
}
