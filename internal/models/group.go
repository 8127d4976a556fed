package models

import (
	"fmt"

	"github.com/google/uuid"
)

// TenantGroup is the isolation boundary of the destination.
type TenantGroup struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	AuthToken uuid.UUID `json:"auth_token"`
}

// Namespace is the directory / key prefix the group's blobs live under.
func (g TenantGroup) Namespace() string {
	return fmt.Sprintf("group_%d", g.ID)
}

// SpecialGroup is a named descriptor set with its own access token.
type SpecialGroup struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	APIToken           *string `json:"sg_api_token,omitempty"`
	CallbackURL        *string `json:"callback_url,omitempty"`
	MaxDescriptorCount int     `json:"max_descriptor_count"`
}
