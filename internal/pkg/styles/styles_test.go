package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalogue(t *testing.T) {
	all := All()
	assert.Len(t, all, 6)

	seen := map[string]bool{}
	for _, tpl := range all {
		assert.NotEmpty(t, tpl.Label)
		assert.NotEmpty(t, tpl.Prompt)
		assert.False(t, seen[tpl.ID], "duplicate id %s", tpl.ID)
		seen[tpl.ID] = true
	}

	all[0].Label = "changed"
	first, ok := Get(all[0].ID)
	assert.True(t, ok)
	assert.Equal(t, "Santa Suit", first.Label)

	_, ok = Get("pirate")
	assert.False(t, ok)
}
