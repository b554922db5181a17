package doctor

import (
	"context"
	"fmt"
	"time"

	"github.com/colonyops/pantry/internal/core/kv"
	"github.com/colonyops/pantry/internal/core/recipe"
)

// StorageCheck reads the recipe document directly from the medium and
// reports whether it decodes cleanly.
type StorageCheck struct {
	doc *kv.Document
	now func() time.Time
}

// NewStorageCheck creates a storage check over doc.
func NewStorageCheck(doc *kv.Document) *StorageCheck {
	return &StorageCheck{doc: doc, now: time.Now}
}

func (c *StorageCheck) Name() string {
	return "Storage"
}

func (c *StorageCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	raw, err := c.doc.Read(ctx)
	if err != nil {
		result.Items = append(result.Items, CheckItem{
			Label:  "medium",
			Status: StatusFail,
			Detail: fmt.Sprintf("read failed: %v", err),
		})
		return result
	}
	result.Items = append(result.Items, CheckItem{
		Label:  "medium",
		Status: StatusPass,
		Detail: fmt.Sprintf("key %q, %d bytes", c.doc.Key(), len(raw)),
	})

	recipes, stats := recipe.DecodeCollection(raw, c.now())

	if stats.Corrupt {
		result.Items = append(result.Items, CheckItem{
			Label:  "payload",
			Status: StatusFail,
			Detail: "stored document is not a JSON array, reads return an empty catalog",
		})
		return result
	}

	result.Items = append(result.Items, CheckItem{
		Label:  "records",
		Status: StatusPass,
		Detail: fmt.Sprintf("%d recipes, %d images", len(recipes), recipes.ImageCount()),
	})

	if stats.DroppedRecords > 0 {
		result.Items = append(result.Items, CheckItem{
			Label:  "malformed records",
			Status: StatusWarn,
			Detail: fmt.Sprintf("%d stored records have no id and will be dropped on the next write", stats.DroppedRecords),
		})
	}

	if stats.FieldRepairs > 0 {
		result.Items = append(result.Items, CheckItem{
			Label:  "fields",
			Status: StatusWarn,
			Detail: fmt.Sprintf("%d fields have the wrong type and will be rewritten on the next write", stats.FieldRepairs),
		})
	}

	if stats.TimestampFallbacks > 0 {
		result.Items = append(result.Items, CheckItem{
			Label:  "timestamps",
			Status: StatusWarn,
			Detail: fmt.Sprintf("%d unparsable timestamps read as the current time", stats.TimestampFallbacks),
		})
	}

	return result
}
