package uid

import "github.com/google/uuid"

// New generates a request-scoped unique identifier.
func New() string {
	return uuid.NewString()
}
