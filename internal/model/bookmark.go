// Package model holds the bookmark tree that import and export work on.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Bookmark is a saved URL with the icon resolved for it, if any.
type Bookmark struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	FolderID  *string   `json:"folderId"` // nil = root level
	CreatedAt time.Time `json:"createdAt"`
	IconURL   string    `json:"iconUrl,omitempty"` // empty = no working icon
}

// Folder is a container for bookmarks and other folders.
type Folder struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ParentID *string `json:"parentId"` // nil = root level
}

// NewBookmark creates a Bookmark with a generated ID.
func NewBookmark(title, url string, folderID *string, createdAt time.Time) Bookmark {
	return Bookmark{
		ID:        newID(),
		Title:     title,
		URL:       url,
		FolderID:  folderID,
		CreatedAt: createdAt,
	}
}

// NewFolder creates a Folder with a generated ID.
func NewFolder(name string, parentID *string) Folder {
	return Folder{
		ID:       newID(),
		Name:     name,
		ParentID: parentID,
	}
}

func newID() string {
	return uuid.New().String()
}
