package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SceneRecord is one catalog search hit.
type SceneRecord struct {
	ID         string            `json:"id"`
	Collection string            `json:"collection"`
	Datetime   time.Time         `json:"datetime"`
	CloudCover *float64          `json:"cloud_cover,omitempty"`
	Assets     map[string]string `json:"assets"`
}

func (s SceneRecord) String() string {
	return fmt.Sprintf("%s (%s)", s.ID, s.Datetime.Format("2006-01-02"))
}

var ErrNoScene = errors.New("no scene to select from")

// SelectionPolicy picks the scene a run is computed from.
type SelectionPolicy interface {
	Name() string
	Select(scenes []SceneRecord) (SceneRecord, error)
}

// MostRecent takes the head of a list sorted by capture time descending.
type MostRecent struct{}

func (MostRecent) Name() string { return "most-recent" }

func (MostRecent) Select(scenes []SceneRecord) (SceneRecord, error) {
	if len(scenes) == 0 {
		return SceneRecord{}, ErrNoScene
	}
	return scenes[0], nil
}

// LeastCloudCover takes the scene with the lowest eo:cloud_cover. Scenes
// without cloud cover rank last; ties keep catalog order.
type LeastCloudCover struct{}

func (LeastCloudCover) Name() string { return "least-cloud-cover" }

func (LeastCloudCover) Select(scenes []SceneRecord) (SceneRecord, error) {
	if len(scenes) == 0 {
		return SceneRecord{}, ErrNoScene
	}
	best := 0
	for i := 1; i < len(scenes); i++ {
		if lessCloudy(scenes[i], scenes[best]) {
			best = i
		}
	}
	return scenes[best], nil
}

func lessCloudy(a, b SceneRecord) bool {
	switch {
	case a.CloudCover == nil:
		return false
	case b.CloudCover == nil:
		return true
	}
	return *a.CloudCover < *b.CloudCover
}

// PolicyByName resolves a selection policy from configuration.
func PolicyByName(name string) (SelectionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "most-recent":
		return MostRecent{}, nil
	case "least-cloud-cover":
		return LeastCloudCover{}, nil
	}
	return nil, fmt.Errorf("unknown scene selection policy %q", name)
}
