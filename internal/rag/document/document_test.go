package document

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_PlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "advice.txt")
	require.NoError(t, os.WriteFile(path, []byte("Save at least 20% of your income.\r\nSpend less than you earn.\r\n"), 0644))

	text, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Save at least 20% of your income.\nSpend less than you earn.\n", text)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreadable)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_InvalidUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "binary.txt")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xfe, 0x00}, 0644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestLoad_HTML(t *testing.T) {
	html := `<html><head><title>Advice</title><style>p{}</style></head>
<body>
<nav>Home | About</nav>
<h1>Saving</h1>
<p>Save at least   20% of your income.</p>
<ul><li><p>Automate transfers.</p></li><li>Review monthly.</li></ul>
<script>track()</script>
</body></html>`
	path := filepath.Join(t.TempDir(), "advice.html")
	require.NoError(t, os.WriteFile(path, []byte(html), 0644))

	text, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Saving\n\nSave at least 20% of your income.\n\nAutomate transfers.\n\nReview monthly.", text)
}

func TestHTMLText_FallsBackToBody(t *testing.T) {
	text, err := HTMLText("<html><body><div>Pay yourself first.</div></body></html>")
	require.NoError(t, err)
	assert.Equal(t, "Pay yourself first.", text)
}
