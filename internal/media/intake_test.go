package media

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntake_AddRejectsAtLimit(t *testing.T) {
	in, err := NewIntake(t.TempDir(), Policy{MaxFileBytes: 10})
	require.NoError(t, err)
	defer in.Close()

	f, notice, err := in.Add("small.txt", "text/plain", strings.NewReader(strings.Repeat("a", 9)))
	require.NoError(t, err)
	require.Nil(t, notice)
	assert.Equal(t, int64(9), f.Size)
	assert.Equal(t, KindOther, f.Kind)

	_, notice, err = in.Add("exact.txt", "text/plain", strings.NewReader(strings.Repeat("a", 10)))
	require.NoError(t, err)
	require.NotNil(t, notice)
	assert.Equal(t, "exact.txt", notice.Name)

	_, notice, err = in.Add("over.txt", "text/plain", strings.NewReader(strings.Repeat("a", 11)))
	require.NoError(t, err)
	require.NotNil(t, notice)

	files := in.Files()
	require.Len(t, files, 1)
	assert.Equal(t, "small.txt", files[0].Name)
}

func TestIntake_SniffsMimeType(t *testing.T) {
	in, err := NewIntake(t.TempDir(), DefaultPolicy())
	require.NoError(t, err)
	defer in.Close()

	png := "\x89PNG\r\n\x1a\n" + strings.Repeat("\x00", 32)
	f, _, err := in.Add("pic", "application/octet-stream", strings.NewReader(png))
	require.NoError(t, err)
	assert.Equal(t, "image/png", f.MimeType)
	assert.Equal(t, KindImage, f.Kind)
}

func TestIntake_RemoveReplaceClose(t *testing.T) {
	in, err := NewIntake(t.TempDir(), DefaultPolicy())
	require.NoError(t, err)

	a, _, err := in.Add("a.txt", "text/plain", strings.NewReader("a"))
	require.NoError(t, err)
	b, _, err := in.Add("b.txt", "text/plain", strings.NewReader("b"))
	require.NoError(t, err)

	c, _, err := in.Replace(a.ID, "c.txt", "text/plain", strings.NewReader("cc"))
	require.NoError(t, err)
	_, statErr := os.Stat(a.Path)
	assert.True(t, os.IsNotExist(statErr), "replaced file must be released")

	files := in.Files()
	require.Len(t, files, 2)
	assert.Equal(t, c.ID, files[0].ID)
	assert.Equal(t, b.ID, files[1].ID)

	assert.True(t, in.Remove(b.ID))
	assert.False(t, in.Remove(b.ID))
	_, statErr = os.Stat(b.Path)
	assert.True(t, os.IsNotExist(statErr))

	require.NoError(t, in.Close())
	_, statErr = os.Stat(c.Path)
	assert.True(t, os.IsNotExist(statErr))
	assert.False(t, in.HasMedia())

	_, _, err = in.Add("late.txt", "text/plain", strings.NewReader("x"))
	assert.Error(t, err)
}
