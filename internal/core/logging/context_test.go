package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithRecipeID(t *testing.T) {
	ctx := WithRecipeID(context.Background(), "r-123")
	assert.Equal(t, "r-123", GetRecipeID(ctx))
}

func TestWithJob(t *testing.T) {
	ctx := WithJob(context.Background(), "cleanup")
	assert.Equal(t, "cleanup", GetJob(ctx))
}

func TestContextValues_NotPresent(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRecipeID(ctx))
	assert.Empty(t, GetJob(ctx))
}
