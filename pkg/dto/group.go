package dto

import "github.com/google/uuid"

type GroupResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	AuthToken uuid.UUID `json:"auth_token"`
}

type GroupListResponse struct {
	Groups []GroupResponse `json:"groups"`
	Total  int             `json:"total"`
}

type CreateGroupRequest struct {
	Name string `json:"name" binding:"required"`
	// Type selects the seed stream config: "frs" (default) or "lprs".
	Type string `json:"type"`
}
