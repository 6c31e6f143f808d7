package mirror

import (
	"bytes"
	"testing"

	"github.com/b1naryth1ef/mirror/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b.txt", "0123456789")
	writeFile(t, root, "a/x.txt", "hello")
	writeFile(t, root, "a/y/z.txt", "")

	var buf bytes.Buffer
	require.NoError(t, RenderTree(&buf, "/srv/data", enumerate(t, transport.NewLocal(root))))

	assert.Equal(t, `/srv/data
├── a
│   ├── x.txt (5 B)
│   └── y
│       └── z.txt (0 B)
└── b.txt (10 B)
`, buf.String())
}

func TestRenderTree_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderTree(&buf, "root", NewSnapshot("root")))
	assert.Equal(t, "root\n", buf.String())
}
