package models

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestValidType(t *testing.T) {
	for _, valid := range []string{TypeFolder, TypeFile, TypeImage} {
		if !ValidType(valid) {
			t.Errorf("ValidType(%q) = false, want true", valid)
		}
	}
	for _, invalid := range []string{"", "dir", "Folder", "FILE", "video"} {
		if ValidType(invalid) {
			t.Errorf("ValidType(%q) = true, want false", invalid)
		}
	}
}

func TestFile_VariantPath(t *testing.T) {
	f := File{LocalPath: "files/abc-123"}

	tests := []struct {
		size int
		want string
	}{
		{100, "files/abc-123_100"},
		{250, "files/abc-123_250"},
		{500, "files/abc-123_500"},
	}
	for _, tt := range tests {
		if got := f.VariantPath(tt.size); got != tt.want {
			t.Errorf("VariantPath(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestFile_IsFolderAndIsInRoot(t *testing.T) {
	parent := primitive.NewObjectID()

	folder := File{Type: TypeFolder}
	if !folder.IsFolder() {
		t.Error("IsFolder() = false for folder")
	}
	if !folder.IsInRoot() {
		t.Error("IsInRoot() = false for record without parent")
	}

	child := File{Type: TypeFile, ParentID: &parent}
	if child.IsFolder() {
		t.Error("IsFolder() = true for file")
	}
	if child.IsInRoot() {
		t.Error("IsInRoot() = true for record with parent")
	}
}
