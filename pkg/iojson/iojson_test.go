package iojson

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name string `json:"name"`
}

func TestFileReader_Stdin(t *testing.T) {
	fr := &FileReader[item]{Stdin: strings.NewReader(`{"name":"soup"}`)}

	got, err := fr.Read()
	require.NoError(t, err)
	assert.Equal(t, "soup", got.Name)
}

func TestFileReader_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"bread"}`), 0o644))

	fr := &FileReader[item]{Stdin: strings.NewReader(`{"name":"ignored"}`)}
	fr.SetFile(path)

	got, err := fr.Read()
	require.NoError(t, err)
	assert.Equal(t, "bread", got.Name)
}

func TestFileReader_RejectsUnknownFields(t *testing.T) {
	fr := &FileReader[item]{Stdin: strings.NewReader(`{"name":"soup","extra":1}`)}

	_, err := fr.Read()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode JSON")
}

func TestWriteLines(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLines(&buf, []item{{Name: "a"}, {Name: "b"}}))
	assert.Equal(t, "{\"name\":\"a\"}\n{\"name\":\"b\"}\n", buf.String())
}

func TestMarshalError(t *testing.T) {
	got := MarshalError("boom", map[string]any{"id": "x"})
	assert.Contains(t, got, `"message": "boom"`)
	assert.Contains(t, got, `"id": "x"`)

	got = MarshalError("bad", map[string]any{"fn": func() {}})
	assert.Contains(t, got, `"json_error"`)
}
