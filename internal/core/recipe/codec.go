package recipe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// document is the persisted shape of a Recipe.
type document struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
}

// DecodeStats describes what DecodeCollection had to repair.
type DecodeStats struct {
	// Corrupt is set when the payload was not a JSON array at all.
	Corrupt bool
	// DroppedRecords counts elements that were not JSON objects or had no id.
	DroppedRecords int
	// FieldRepairs counts fields of kept records that had the wrong type and
	// were coerced or reset.
	FieldRepairs int
	// TimestampFallbacks counts timestamps replaced by now.
	TimestampFallbacks int
}

// Repaired reports whether decoding changed anything.
func (s DecodeStats) Repaired() bool {
	return s.Corrupt || s.DroppedRecords > 0 || s.FieldRepairs > 0 || s.TimestampFallbacks > 0
}

// DecodeCollection turns a stored payload into a Collection. It never fails:
// an absent, empty or non-array payload is an empty collection.
//
// Fields are read one at a time so a record is only dropped when it has no
// id. Numbers and booleans in string fields keep their literal text, a lone
// string in images becomes a one element list and anything else is reset.
// A missing updatedAt defaults to createdAt. An unparsable timestamp becomes
// now and is counted in TimestampFallbacks.
func DecodeCollection(raw []byte, now time.Time) (Collection, DecodeStats) {
	var stats DecodeStats

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Collection{}, stats
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		stats.Corrupt = true
		return Collection{}, stats
	}

	out := make(Collection, 0, len(elems))
	for _, elem := range elems {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(elem, &fields); err != nil {
			stats.DroppedRecords++
			continue
		}

		id, fixed := stringField(fields["id"])
		if id == "" {
			stats.DroppedRecords++
			continue
		}

		rec := Recipe{ID: id}
		repairs := boolInt(fixed)

		rec.Title, fixed = stringField(fields["title"])
		repairs += boolInt(fixed)
		rec.Description, fixed = stringField(fields["description"])
		repairs += boolInt(fixed)
		rec.Images, fixed = imagesField(fields["images"])
		repairs += boolInt(fixed)

		createdAt, state := timestampField(fields["createdAt"], now)
		switch state {
		case tsMissing, tsFallback:
			stats.TimestampFallbacks++
		case tsCoerced:
			repairs++
		}
		rec.CreatedAt = createdAt

		updatedAt, state := timestampField(fields["updatedAt"], now)
		switch state {
		case tsMissing:
			updatedAt = createdAt
		case tsFallback:
			stats.TimestampFallbacks++
		case tsCoerced:
			repairs++
		}
		rec.UpdatedAt = updatedAt

		stats.FieldRepairs += repairs
		out = append(out, rec)
	}

	return out, stats
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// stringField reads a string value. Numbers and booleans keep their literal
// text; objects and arrays become "". fixed reports a wrong type.
func stringField(raw json.RawMessage) (s string, fixed bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}

	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", true
		}
		return s, false
	case '{', '[':
		return "", true
	default:
		return string(raw), true
	}
}

// imagesField reads the images list. A lone string is wrapped; entries that
// are not strings are skipped.
func imagesField(raw json.RawMessage) (images []string, fixed bool) {
	images = []string{}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return images, false
	}

	switch raw[0] {
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return images, true
		}
		for _, elem := range elems {
			elem = bytes.TrimSpace(elem)
			var uri string
			if len(elem) == 0 || elem[0] != '"' || json.Unmarshal(elem, &uri) != nil {
				fixed = true
				continue
			}
			images = append(images, uri)
		}
		return images, fixed
	case '"':
		var uri string
		if err := json.Unmarshal(raw, &uri); err == nil && uri != "" {
			images = append(images, uri)
		}
		return images, true
	default:
		return images, true
	}
}

type timestampState int

const (
	tsOK timestampState = iota
	tsMissing
	tsFallback
	tsCoerced
)

// timestampField reads an ISO-8601 string. A number is taken as Unix
// milliseconds. Missing and unparsable values return now.
func timestampField(raw json.RawMessage, now time.Time) (time.Time, timestampState) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return now, tsMissing
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return now, tsFallback
		}
		if strings.TrimSpace(s) == "" {
			return now, tsMissing
		}
		t, ok := ParseTimestamp(s, now)
		if !ok {
			return now, tsFallback
		}
		return t, tsOK
	}

	var ms json.Number
	if err := json.Unmarshal(raw, &ms); err == nil {
		if n, err := ms.Int64(); err == nil {
			return time.UnixMilli(n).UTC(), tsCoerced
		}
	}
	return now, tsFallback
}

// EncodeCollection renders c in the persisted form.
func EncodeCollection(c Collection) ([]byte, error) {
	docs := make([]document, len(c))
	for i, r := range c {
		images := r.Images
		if images == nil {
			images = []string{}
		}
		docs[i] = document{
			ID:          r.ID,
			Title:       r.Title,
			Description: r.Description,
			Images:      images,
			CreatedAt:   FormatTimestamp(r.CreatedAt),
			UpdatedAt:   FormatTimestamp(r.UpdatedAt),
		}
	}

	data, err := json.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("encode recipes: %w", err)
	}
	return data, nil
}
