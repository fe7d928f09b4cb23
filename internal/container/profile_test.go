package container

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svccore/internal/controller"
)

func TestProfile_SortedByName(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.register("zebra", controller.New("zebra", noopService(), nil)))
	require.NoError(t, r.register("apple", controller.New("apple", noopService(), nil)))

	lines := Profile(r)

	require.Len(t, lines, 2)
	assert.Equal(t, "apple", lines[0].Name)
	assert.Equal(t, "zebra", lines[1].Name)
}

func TestProfileText_TabSeparatedWithTrailingNewline(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.register("svc", controller.New("svc", noopService(), nil)))

	text := ProfileText(r)

	assert.True(t, strings.HasSuffix(text, "\n"))
	firstLine := strings.SplitN(text, "\n", 2)[0]
	assert.Equal(t, 7, strings.Count(firstLine, "\t"))
}
