package models

import "github.com/google/uuid"

// ensureID assigns a random UUID when the caller did not pick one. IDs are
// generated in Go so rows can be referenced before the insert returns.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
