package doctor

import (
	"context"
	"fmt"
)

// ImageHealth is the summary an ImagesCheck reports on.
type ImageHealth struct {
	Records           int
	Images            int
	Invalid           int
	RecordsWithIssues int
}

// ImagesCheck validates every stored image reference.
type ImagesCheck struct {
	report func(ctx context.Context) (ImageHealth, error)
}

// NewImagesCheck creates an images check. report is usually backed by the
// maintenance health report.
func NewImagesCheck(report func(ctx context.Context) (ImageHealth, error)) *ImagesCheck {
	return &ImagesCheck{report: report}
}

func (c *ImagesCheck) Name() string {
	return "Images"
}

func (c *ImagesCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	h, err := c.report(ctx)
	if err != nil {
		result.Items = append(result.Items, CheckItem{
			Label:  "image references",
			Status: StatusFail,
			Detail: fmt.Sprintf("health report failed: %v", err),
		})
		return result
	}

	if h.Invalid == 0 {
		result.Items = append(result.Items, CheckItem{
			Label:  "image references",
			Status: StatusPass,
			Detail: fmt.Sprintf("%d images across %d recipes", h.Images, h.Records),
		})
		return result
	}

	result.Items = append(result.Items, CheckItem{
		Label:   "image references",
		Status:  StatusWarn,
		Detail:  fmt.Sprintf("%d of %d images invalid in %d recipes (run 'pantry images cleanup')", h.Invalid, h.Images, h.RecordsWithIssues),
		Fixable: true,
	})
	return result
}
