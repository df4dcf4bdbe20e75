package models

import (
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// File record types.
const (
	TypeFolder = "folder"
	TypeFile   = "file"
	TypeImage  = "image"
)

// ValidType reports whether t is one of the accepted file record types.
func ValidType(t string) bool {
	return t == TypeFolder || t == TypeFile || t == TypeImage
}

// File represents a file, image, or folder record.
//
// ParentID is nil for records at the root level (the "0" sentinel on the
// wire). LocalPath is the blob storage path of the raw bytes; it is empty
// for folders and never exposed through the API. OwnerID and ParentID are
// fixed at creation.
type File struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty"`
	OwnerID   primitive.ObjectID  `bson:"owner_id"`
	Name      string              `bson:"name"`
	Type      string              `bson:"type"` // "folder", "file", or "image"
	IsPublic  bool                `bson:"is_public"`
	ParentID  *primitive.ObjectID `bson:"parent_id,omitempty"` // nil = root
	LocalPath string              `bson:"local_path,omitempty"`
	CreatedAt time.Time           `bson:"created_at"`
	UpdatedAt time.Time           `bson:"updated_at"`
}

// IsFolder reports whether the record is a folder.
func (f *File) IsFolder() bool {
	return f.Type == TypeFolder
}

// IsInRoot returns true if the record is at the root level (no parent folder).
func (f *File) IsInRoot() bool {
	return f.ParentID == nil
}

// VariantPath returns the blob path of the derived thumbnail for the given
// size, following the <localPath>_<size> convention.
func (f *File) VariantPath(size int) string {
	if f.LocalPath == "" {
		return ""
	}
	return f.LocalPath + "_" + strconv.Itoa(size)
}
