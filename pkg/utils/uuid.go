package utils

import (
	"github.com/google/uuid"

	"github.com/himanishpuri/ARWorldMap/pkg/models"
)

// NewAnchorID returns a random (v4) UUID string as an anchor identifier.
func NewAnchorID() models.AnchorID {
	return models.AnchorID(uuid.NewString())
}
