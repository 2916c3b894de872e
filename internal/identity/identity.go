// Package identity derives the feed GUID of each episode.
//
// A GUID is a name-based (version 5) UUID over the episode's scan-relative
// path and its size in bytes. Modification time is not part of the identity.
package identity

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"podcast-generator/internal/models"
)

// Namespace scopes episode GUIDs generated by this module.
var Namespace = uuid.MustParse("5f0c7f2e-8a4b-5d1e-9c36-2b7d4e8a1f60")

// Fingerprint returns the stable identity input for a file.
func Fingerprint(relativePath string, size int64) string {
	return relativePath + "\x00" + strconv.FormatInt(size, 10)
}

// GUID returns the identifier for the file at relativePath with the given size.
func GUID(relativePath string, size int64) string {
	return uuid.NewSHA1(Namespace, []byte(Fingerprint(relativePath, size))).String()
}

// CollisionError reports two distinct episodes that hashed to the same GUID.
type CollisionError struct {
	GUID   string
	First  string
	Second string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("guid %s assigned to both %s and %s", e.GUID, e.First, e.Second)
}

// Assigner stamps GUIDs onto resolved episodes.
type Assigner struct {
	// Hash overrides the fingerprint hash. Nil uses GUID.
	Hash func(relativePath string, size int64) string
}

// Assign returns a copy of episodes with GUID populated. It fails when two
// episodes with different fingerprints produce the same GUID.
func (a Assigner) Assign(episodes []models.Episode) ([]models.Episode, error) {
	hash := a.Hash
	if hash == nil {
		hash = GUID
	}

	result := make([]models.Episode, len(episodes))
	seen := make(map[string]models.Episode, len(episodes))
	for i, ep := range episodes {
		ep.GUID = hash(ep.RelativePath, ep.FilesizeBytes)
		if prior, ok := seen[ep.GUID]; ok {
			if Fingerprint(prior.RelativePath, prior.FilesizeBytes) != Fingerprint(ep.RelativePath, ep.FilesizeBytes) {
				return nil, &CollisionError{GUID: ep.GUID, First: prior.RelativePath, Second: ep.RelativePath}
			}
		}
		seen[ep.GUID] = ep
		result[i] = ep
	}
	return result, nil
}
