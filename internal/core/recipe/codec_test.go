package recipe

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCollection_EmptyPayloads(t *testing.T) {
	for _, raw := range []string{"", "   ", "null", "[]"} {
		t.Run(raw, func(t *testing.T) {
			got, stats := DecodeCollection([]byte(raw), now)
			assert.Empty(t, got)
			assert.NotNil(t, got)
			assert.False(t, stats.Repaired())
		})
	}
}

func TestDecodeCollection_CorruptPayload(t *testing.T) {
	for _, raw := range []string{"{not json", `{"id":"1"}`, `"recipes"`} {
		t.Run(raw, func(t *testing.T) {
			got, stats := DecodeCollection([]byte(raw), now)
			assert.Empty(t, got)
			assert.True(t, stats.Corrupt)
		})
	}
}

func TestDecodeCollection_DropsOnlyElementsWithoutID(t *testing.T) {
	raw := `[
		{"id":"1","title":"Soup","description":"","images":["a"],"createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-01-02T00:00:00Z"},
		42,
		null,
		{"title":"no id"},
		{"id":"","title":"blank id"}
	]`

	got, stats := DecodeCollection([]byte(raw), now)

	require.Len(t, got, 1)
	assert.Equal(t, "Soup", got[0].Title)
	assert.Equal(t, 4, stats.DroppedRecords)
	assert.Zero(t, stats.FieldRepairs)
	assert.False(t, stats.Corrupt)
}

func TestDecodeCollection_RepairsWrongTypedFields(t *testing.T) {
	tests := []struct {
		name string
		elem string
		want Recipe
	}{
		{
			name: "images as a single string",
			elem: `{"id":"2","title":"Bread","images":"https://x/y.jpg","createdAt":"2024-01-01T00:00:00Z"}`,
			want: Recipe{ID: "2", Title: "Bread", Images: []string{"https://x/y.jpg"}},
		},
		{
			name: "numeric title and id",
			elem: `{"id":7,"title":12,"images":[],"createdAt":"2024-01-01T00:00:00Z"}`,
			want: Recipe{ID: "7", Title: "12", Images: []string{}},
		},
		{
			name: "object description and mixed images",
			elem: `{"id":"3","title":"Pie","description":{"x":1},"images":["a",5,{"b":1}],"createdAt":"2024-01-01T00:00:00Z"}`,
			want: Recipe{ID: "3", Title: "Pie", Images: []string{"a"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, stats := DecodeCollection([]byte("["+tt.elem+"]"), now)

			require.Len(t, got, 1)
			assert.Equal(t, tt.want.ID, got[0].ID)
			assert.Equal(t, tt.want.Title, got[0].Title)
			assert.Equal(t, tt.want.Description, got[0].Description)
			assert.Equal(t, tt.want.Images, got[0].Images)
			assert.Positive(t, stats.FieldRepairs)
			assert.Zero(t, stats.DroppedRecords)
		})
	}
}

func TestDecodeCollection_RepairedRecordSurvivesRewrite(t *testing.T) {
	raw := `[
		{"id":"1","title":"Soup","images":[],"createdAt":"2024-01-01T00:00:00Z"},
		{"id":"2","title":"Bread","images":"https://x/y.jpg","createdAt":"2024-01-01T00:00:00Z"}
	]`

	c, _ := DecodeCollection([]byte(raw), now)
	c = append(c, Recipe{ID: "3", Title: "Pie", Images: []string{}, CreatedAt: now, UpdatedAt: now})

	data, err := EncodeCollection(c)
	require.NoError(t, err)

	back, stats := DecodeCollection(data, now)
	assert.False(t, stats.Repaired())
	require.Len(t, back, 3)
	assert.Equal(t, "2", back[1].ID)
	assert.Equal(t, []string{"https://x/y.jpg"}, back[1].Images)
}

func TestDecodeCollection_NumericTimestamps(t *testing.T) {
	raw := `[{"id":"1","title":"a","createdAt":1704067200000,"updatedAt":""}]`

	got, stats := DecodeCollection([]byte(raw), now)
	require.Len(t, got, 1)

	jan1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, got[0].CreatedAt.Equal(jan1))
	assert.True(t, got[0].UpdatedAt.Equal(jan1), "empty updatedAt defaults to createdAt")
	assert.Equal(t, 1, stats.FieldRepairs)
	assert.Zero(t, stats.TimestampFallbacks)
}

func TestDecodeCollection_TimestampDefaults(t *testing.T) {
	raw := `[
		{"id":"1","title":"a","createdAt":"2024-01-01T00:00:00Z"},
		{"id":"2","title":"b","createdAt":"bogus","updatedAt":"also bogus"},
		{"id":"3","title":"c","createdAt":"2024-01-01T00:00:00Z","images":null}
	]`

	got, stats := DecodeCollection([]byte(raw), now)
	require.Len(t, got, 3)

	jan1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, got[0].UpdatedAt.Equal(jan1), "missing updatedAt defaults to createdAt")
	assert.True(t, got[1].CreatedAt.Equal(now))
	assert.True(t, got[1].UpdatedAt.Equal(now))
	assert.Equal(t, 2, stats.TimestampFallbacks)
	assert.NotNil(t, got[2].Images)
}

func TestEncodeCollection_PersistedShape(t *testing.T) {
	c := Collection{{
		ID:          "1",
		Title:       "Soup",
		Description: "",
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 5000, time.UTC),
	}}

	data, err := EncodeCollection(c)
	require.NoError(t, err)

	var out []map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out, 1)
	assert.Equal(t, "1", out[0]["id"])
	assert.Equal(t, []any{}, out[0]["images"])
	assert.Equal(t, "2024-01-01T00:00:00Z", out[0]["createdAt"])
	assert.Equal(t, "2024-01-01T00:00:00.000005Z", out[0]["updatedAt"])

	back, stats := DecodeCollection(data, now)
	assert.False(t, stats.Repaired())
	assert.True(t, back[0].UpdatedAt.Equal(c[0].UpdatedAt))
}
