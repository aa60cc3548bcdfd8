package dto

import "slack-connect/domain/model"

// WorkspacesResponse is returned by GET /api/auth/workspaces.
type WorkspacesResponse struct {
	Workspaces []model.Workspace `json:"workspaces"`
}
