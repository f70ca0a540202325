package model

// Store holds a bookmark tree.
type Store struct {
	Folders   []Folder   `json:"folders"`
	Bookmarks []Bookmark `json:"bookmarks"`
}

// NewStore creates an empty Store with initialized slices.
func NewStore() *Store {
	return &Store{
		Folders:   []Folder{},
		Bookmarks: []Bookmark{},
	}
}

// GetFoldersInFolder returns folders with the given parent ID.
// Pass nil for root level folders.
func (s *Store) GetFoldersInFolder(parentID *string) []Folder {
	var result []Folder
	for _, f := range s.Folders {
		if ptrEqual(f.ParentID, parentID) {
			result = append(result, f)
		}
	}
	return result
}

// GetBookmarksInFolder returns bookmarks in the given folder.
// Pass nil for root level bookmarks.
func (s *Store) GetBookmarksInFolder(folderID *string) []Bookmark {
	var result []Bookmark
	for _, b := range s.Bookmarks {
		if ptrEqual(b.FolderID, folderID) {
			result = append(result, b)
		}
	}
	return result
}

// URLs returns every bookmark URL once, in store order.
func (s *Store) URLs() []string {
	seen := make(map[string]bool, len(s.Bookmarks))
	urls := make([]string, 0, len(s.Bookmarks))
	for _, b := range s.Bookmarks {
		if b.URL == "" || seen[b.URL] {
			continue
		}
		seen[b.URL] = true
		urls = append(urls, b.URL)
	}
	return urls
}

// SetIcons assigns icon URLs by bookmark URL. Bookmarks missing from icons
// lose any icon they had.
func (s *Store) SetIcons(icons map[string]string) {
	for i := range s.Bookmarks {
		s.Bookmarks[i].IconURL = icons[s.Bookmarks[i].URL]
	}
}

// ptrEqual compares two string pointers for equality.
func ptrEqual(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
