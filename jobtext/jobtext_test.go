package jobtext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"already clean", "Remote Go developer.", "Remote Go developer."},
		{"blank lines and indentation", "  About us\n\n\n   We build things.  \n", "About us We build things."},
		{"repeated dots", "Experience with React... and Node.js..", "Experience with React. and Node.js."},
		{"tabs and runs of spaces", "Skills:\tGo,   SQL", "Skills: Go, SQL"},
		{"crlf", "Line one\r\nLine two\r\n", "Line one Line two"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestFromHTML(t *testing.T) {
	html := `<!DOCTYPE html>
<html>
<head><title>Job</title><style>.x { color: red }</style></head>
<body>
  <h1>Full Stack Developer</h1>
  <script>track("view")</script>
  <p>We are looking for a <b>remote</b> developer...</p>
  <ul><li>React</li><li>Node.js</li></ul>
  <p>Apply now<br>or later</p>
</body>
</html>`

	got, err := FromHTML(html)
	require.NoError(t, err)
	assert.Equal(t, "Full Stack Developer We are looking for a remote developer. React Node.js Apply now or later", got)
	assert.NotContains(t, got, "track")
	assert.NotContains(t, got, "color")
}

func TestFromHTMLReaderSelector(t *testing.T) {
	html := `<div class="nav">Home | Jobs</div>
<div class="description"><p>Part time data analyst.</p><p>SQL, Excel</p></div>`

	got, err := FromHTMLReader(strings.NewReader(html), ".description")
	require.NoError(t, err)
	assert.Equal(t, "Part time data analyst. SQL, Excel", got)

	got, err = FromHTMLReader(strings.NewReader(html), ".missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLooksLikeHTML(t *testing.T) {
	assert.True(t, LooksLikeHTML("<!DOCTYPE html><html></html>"))
	assert.True(t, LooksLikeHTML("  <p>Remote role</p>"))
	assert.False(t, LooksLikeHTML("Remote role with <3 benefits"))
	assert.False(t, LooksLikeHTML("<not closed"))
	assert.False(t, LooksLikeHTML(""))
}
