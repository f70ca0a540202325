package model_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nikbrunner/bmicon/internal/model"
)

// Helper functions for pointers
func stringPtr(s string) *string { return &s }

func TestNewBookmark_GeneratesUniqueIDs(t *testing.T) {
	at := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	a := model.NewBookmark("Go", "https://go.dev", nil, at)
	b := model.NewBookmark("Go", "https://go.dev", nil, at)

	if a.ID == "" || b.ID == "" {
		t.Fatal("expected generated IDs")
	}
	if a.ID == b.ID {
		t.Errorf("expected unique IDs, both were %q", a.ID)
	}
	if !a.CreatedAt.Equal(at) {
		t.Errorf("expected CreatedAt %v, got %v", at, a.CreatedAt)
	}
}

func TestBookmark_IconURLOmittedWhenEmpty(t *testing.T) {
	b := model.Bookmark{ID: "b1", Title: "HN", URL: "https://news.ycombinator.com"}

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if strings.Contains(string(data), "iconUrl") {
		t.Errorf("expected iconUrl to be omitted, got %s", data)
	}

	b.IconURL = "https://news.ycombinator.com/favicon.ico"
	data, _ = json.Marshal(b)
	if !strings.Contains(string(data), `"iconUrl":"https://news.ycombinator.com/favicon.ico"`) {
		t.Errorf("expected iconUrl in output, got %s", data)
	}
}

func TestStore_GetFoldersInFolder(t *testing.T) {
	store := model.Store{
		Folders: []model.Folder{
			{ID: "f1", Name: "Development", ParentID: nil},
			{ID: "f2", Name: "React", ParentID: stringPtr("f1")},
			{ID: "f3", Name: "Design", ParentID: nil},
			{ID: "f4", Name: "Node", ParentID: stringPtr("f1")},
		},
	}

	if got := len(store.GetFoldersInFolder(nil)); got != 2 {
		t.Errorf("expected 2 root folders, got %d", got)
	}
	if got := len(store.GetFoldersInFolder(stringPtr("f1"))); got != 2 {
		t.Errorf("expected 2 nested folders in f1, got %d", got)
	}
	if got := len(store.GetFoldersInFolder(stringPtr("f3"))); got != 0 {
		t.Errorf("expected 0 folders in f3, got %d", got)
	}
}

func TestStore_GetBookmarksInFolder(t *testing.T) {
	f1ID := "f1"
	store := model.Store{
		Bookmarks: []model.Bookmark{
			{ID: "b1", Title: "Root Bookmark", URL: "https://example.com", FolderID: nil},
			{ID: "b2", Title: "Nested Bookmark", URL: "https://example.org", FolderID: &f1ID},
			{ID: "b3", Title: "Another Root", URL: "https://example.net", FolderID: nil},
		},
	}

	if got := len(store.GetBookmarksInFolder(nil)); got != 2 {
		t.Errorf("expected 2 root bookmarks, got %d", got)
	}
	if got := len(store.GetBookmarksInFolder(&f1ID)); got != 1 {
		t.Errorf("expected 1 nested bookmark, got %d", got)
	}
}

func TestStore_URLs(t *testing.T) {
	store := model.Store{
		Bookmarks: []model.Bookmark{
			{ID: "b1", URL: "https://b.com"},
			{ID: "b2", URL: "https://a.com"},
			{ID: "b3", URL: "https://b.com"},
			{ID: "b4", URL: ""},
		},
	}

	got := store.URLs()
	want := []string{"https://b.com", "https://a.com"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestStore_SetIcons(t *testing.T) {
	store := model.Store{
		Bookmarks: []model.Bookmark{
			{ID: "b1", URL: "https://a.com"},
			{ID: "b2", URL: "https://b.com", IconURL: "https://old.example/icon.png"},
			{ID: "b3", URL: "https://a.com"},
		},
	}

	store.SetIcons(map[string]string{"https://a.com": "https://a.com/favicon.ico"})

	if store.Bookmarks[0].IconURL != "https://a.com/favicon.ico" || store.Bookmarks[2].IconURL != "https://a.com/favicon.ico" {
		t.Error("expected both a.com bookmarks to get the icon")
	}
	if store.Bookmarks[1].IconURL != "" {
		t.Errorf("expected stale icon to be cleared, got %q", store.Bookmarks[1].IconURL)
	}
}
