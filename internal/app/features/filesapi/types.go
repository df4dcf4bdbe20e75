package filesapi

import (
	"github.com/dalemusser/stratafiles/internal/domain/models"
)

// RootParent is the wire sentinel for records without a parent folder.
const RootParent = "0"

// uploadInput is the request body for POST /files.
type uploadInput struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	ParentID string `json:"parentId"`
	IsPublic bool   `json:"isPublic"`
	Data     string `json:"data"` // base64-encoded content, absent for folders
}

// FileVM is the API projection of a file record. The blob storage path is
// an internal detail and never crosses this boundary.
type FileVM struct {
	ID       string `json:"id"`
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	IsPublic bool   `json:"isPublic"`
	ParentID string `json:"parentId"`
}

// newFileVM builds the projection for a record.
func newFileVM(f *models.File) FileVM {
	parent := RootParent
	if f.ParentID != nil {
		parent = f.ParentID.Hex()
	}
	return FileVM{
		ID:       f.ID.Hex(),
		UserID:   f.OwnerID.Hex(),
		Name:     f.Name,
		Type:     f.Type,
		IsPublic: f.IsPublic,
		ParentID: parent,
	}
}
