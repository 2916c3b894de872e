package identity

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podcast-generator/internal/models"
)

func TestGUIDIsStable(t *testing.T) {
	first := GUID("first.mp3", 10)
	second := GUID("first.mp3", 10)

	assert.Equal(t, first, second)
	assert.Len(t, first, 36)

	parsed, err := uuid.Parse(first)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())
}

func TestGUIDChangesWithSizeAndPath(t *testing.T) {
	base := GUID("first.mp3", 10)

	assert.NotEqual(t, base, GUID("first.mp3", 11))
	assert.NotEqual(t, base, GUID("second.mp3", 10))
	// Path and size must not be ambiguous when concatenated.
	assert.NotEqual(t, GUID("a1", 23), GUID("a", 123))
}

func TestAssignIgnoresModificationTime(t *testing.T) {
	episodes := []models.Episode{
		{RelativePath: "first.mp3", FilesizeBytes: 10, ModifiedAt: time.Unix(1000, 0)},
	}
	touched := []models.Episode{
		{RelativePath: "first.mp3", FilesizeBytes: 10, ModifiedAt: time.Unix(9000, 0)},
	}

	a, err := Assigner{}.Assign(episodes)
	require.NoError(t, err)
	b, err := Assigner{}.Assign(touched)
	require.NoError(t, err)

	assert.Equal(t, a[0].GUID, b[0].GUID)
}

func TestAssignDoesNotMutateInput(t *testing.T) {
	episodes := []models.Episode{{RelativePath: "first.mp3", FilesizeBytes: 10}}

	result, err := Assigner{}.Assign(episodes)
	require.NoError(t, err)

	assert.Empty(t, episodes[0].GUID)
	assert.Equal(t, GUID("first.mp3", 10), result[0].GUID)
}

func TestAssignDistinctGUIDs(t *testing.T) {
	episodes := []models.Episode{
		{RelativePath: "first.mp3", FilesizeBytes: 10},
		{RelativePath: "second.mp3", FilesizeBytes: 20},
		{RelativePath: "third.mp3", FilesizeBytes: 10},
	}

	result, err := Assigner{}.Assign(episodes)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, ep := range result {
		assert.False(t, seen[ep.GUID], "duplicate guid %s", ep.GUID)
		seen[ep.GUID] = true
	}
}

func TestAssignDetectsCollision(t *testing.T) {
	constant := func(string, int64) string { return "same" }
	episodes := []models.Episode{
		{RelativePath: "first.mp3", FilesizeBytes: 10},
		{RelativePath: "second.mp3", FilesizeBytes: 20},
	}

	result, err := Assigner{Hash: constant}.Assign(episodes)
	assert.Nil(t, result)

	var collision *CollisionError
	require.True(t, errors.As(err, &collision))
	assert.Equal(t, "same", collision.GUID)
	assert.Equal(t, "first.mp3", collision.First)
	assert.Equal(t, "second.mp3", collision.Second)
}
