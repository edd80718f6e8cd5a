package decode

import "github.com/google/uuid"

// NewStreamID returns a random stream identifier.
func NewStreamID() string {
	return uuid.NewString()
}
