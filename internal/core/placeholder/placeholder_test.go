package placeholder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRandom(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://picsum.photos/400/300", true},
		{"https://picsum.photos/400/300?random=7", true},
		{"https://picsum.photos/200", true},
		{"https://picsum.photos/seed/abc/400/300", false},
		{"https://picsum.photos/id/237/400/300", false},
		{"https://picsum.photos", false},
		{"https://example.com/400/300", false},
		{"file:///picsum.photos/400/300", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRandom(tt.url, DefaultHost))
		})
	}
}

func TestSeeded(t *testing.T) {
	in := "https://picsum.photos/400/300?random=7"

	got, changed := Seeded(in, DefaultHost)
	require.True(t, changed)
	assert.Equal(t, "https://picsum.photos/seed/"+Seed(in)+"/400/300", got)
	assert.False(t, IsRandom(got, DefaultHost))

	again, _ := Seeded(in, DefaultHost)
	assert.Equal(t, got, again, "seeding is deterministic")

	other, _ := Seeded("https://picsum.photos/400/300?random=8", DefaultHost)
	assert.NotEqual(t, got, other)
}

func TestSeeded_KeepsOtherParams(t *testing.T) {
	got, changed := Seeded("https://picsum.photos/400/300?grayscale&random=2&blur=2", DefaultHost)
	require.True(t, changed)

	assert.True(t, strings.HasPrefix(got, "https://picsum.photos/seed/"))
	assert.Contains(t, got, "blur=2")
	assert.Contains(t, got, "grayscale")
	assert.NotContains(t, got, "random")
}

func TestSeeded_Unchanged(t *testing.T) {
	for _, u := range []string{
		"https://picsum.photos/seed/abc/400/300",
		"https://images.unsplash.com/photo-1",
		"file:///data/photo.jpg",
	} {
		got, changed := Seeded(u, DefaultHost)
		assert.False(t, changed, u)
		assert.Equal(t, u, got)
	}
}

func TestForRecipe(t *testing.T) {
	got := ForRecipe("r-1", 400, 300, "")
	assert.Equal(t, "https://picsum.photos/seed/"+Seed("r-1")+"/400/300", got)
	assert.Equal(t, got, ForRecipe("r-1", 400, 300, DefaultHost))
	assert.False(t, IsRandom(got, DefaultHost))
}
