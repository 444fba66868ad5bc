package harness

import "fmt"

// State carries the identifiers created by earlier steps to the steps that
// read, update and delete them.
type State struct {
	TenantID             string
	UserID               string
	CredentialID         string
	EmbeddingEndpointID  string
	CompletionEndpointID string
}

// need returns an error when a step's prerequisite was never created, so the
// step fails with a clear message instead of addressing an empty ID.
func need(kind, id string) error {
	if id == "" {
		return fmt.Errorf("no %s was created by an earlier step", kind)
	}
	return nil
}
