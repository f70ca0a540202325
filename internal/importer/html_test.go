package importer_test

import (
	"strings"
	"testing"
	"time"

	"github.com/nikbrunner/bmicon/internal/importer"
	"github.com/nikbrunner/bmicon/internal/model"
)

func TestParseHTML_SingleBookmark(t *testing.T) {
	html := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
    <DT><A HREF="https://example.com" ADD_DATE="1234567890">Example Site</A>
</DL><p>`

	store, err := importer.ParseHTML(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.Folders) != 0 {
		t.Errorf("expected 0 folders, got %d", len(store.Folders))
	}
	if len(store.Bookmarks) != 1 {
		t.Fatalf("expected 1 bookmark, got %d", len(store.Bookmarks))
	}

	b := store.Bookmarks[0]
	if b.Title != "Example Site" {
		t.Errorf("expected title 'Example Site', got %q", b.Title)
	}
	if b.URL != "https://example.com" {
		t.Errorf("expected URL 'https://example.com', got %q", b.URL)
	}
	if b.FolderID != nil {
		t.Errorf("expected FolderID nil (root), got %v", *b.FolderID)
	}
	if b.ID == "" {
		t.Error("expected non-empty ID")
	}
	if b.IconURL != "" {
		t.Errorf("expected no icon, got %q", b.IconURL)
	}
}

func TestParseHTML_NestedFolders(t *testing.T) {
	html := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
    <DT><H3 ADD_DATE="1234567890">Development</H3>
    <DL><p>
        <DT><H3 ADD_DATE="1234567890">React</H3>
        <DL><p>
            <DT><A HREF="https://react.dev" ADD_DATE="1234567890">React Docs</A>
        </DL><p>
        <DT><A HREF="https://github.com" ADD_DATE="1234567890">GitHub</A>
    </DL><p>
    <DT><A HREF="https://google.com" ADD_DATE="1234567890">Google</A>
</DL><p>`

	store, err := importer.ParseHTML(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.Folders) != 2 {
		t.Fatalf("expected 2 folders, got %d", len(store.Folders))
	}

	folders := map[string]model.Folder{}
	for _, f := range store.Folders {
		folders[f.Name] = f
	}
	dev, react := folders["Development"], folders["React"]

	if dev.ID == "" || dev.ParentID != nil {
		t.Error("Development should be at root (ParentID nil)")
	}
	if react.ParentID == nil || *react.ParentID != dev.ID {
		t.Error("React should be child of Development")
	}

	if len(store.Bookmarks) != 3 {
		t.Fatalf("expected 3 bookmarks, got %d", len(store.Bookmarks))
	}

	in := map[string]*string{}
	for _, b := range store.Bookmarks {
		in[b.Title] = b.FolderID
	}
	if id := in["React Docs"]; id == nil || *id != react.ID {
		t.Error("React Docs should be in React folder")
	}
	if id := in["GitHub"]; id == nil || *id != dev.ID {
		t.Error("GitHub should be in Development folder")
	}
	if in["Google"] != nil {
		t.Error("Google should be at root level (FolderID nil)")
	}
}

func TestParseHTML_EmptyFile(t *testing.T) {
	html := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
</DL><p>`

	store, err := importer.ParseHTML(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.Folders) != 0 {
		t.Errorf("expected 0 folders, got %d", len(store.Folders))
	}
	if len(store.Bookmarks) != 0 {
		t.Errorf("expected 0 bookmarks, got %d", len(store.Bookmarks))
	}
}

func TestParseHTML_Timestamps(t *testing.T) {
	// 1234567890 = Fri Feb 13 2009 23:31:30 UTC
	html := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
    <DT><A HREF="https://example.com" ADD_DATE="1234567890">Test</A>
</DL><p>`

	store, err := importer.ParseHTML(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.Bookmarks) != 1 {
		t.Fatalf("expected 1 bookmark, got %d", len(store.Bookmarks))
	}

	expected := time.Unix(1234567890, 0)
	if !store.Bookmarks[0].CreatedAt.Equal(expected) {
		t.Errorf("expected CreatedAt %v, got %v", expected, store.Bookmarks[0].CreatedAt)
	}
}

func TestParseHTML_MissingHref(t *testing.T) {
	html := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
    <DT><A ADD_DATE="1234567890">No URL</A>
    <DT><A HREF="https://valid.com" ADD_DATE="1234567890">Valid</A>
</DL><p>`

	store, err := importer.ParseHTML(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Should skip bookmark without HREF, keep valid one
	if len(store.Bookmarks) != 1 {
		t.Fatalf("expected 1 bookmark (skip missing href), got %d", len(store.Bookmarks))
	}
	if store.Bookmarks[0].Title != "Valid" {
		t.Errorf("expected 'Valid' bookmark, got %q", store.Bookmarks[0].Title)
	}
}

func TestParseHTML_IconURI(t *testing.T) {
	html := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
    <DT><A HREF="https://go.dev" ICON_URI="https://go.dev/favicon.ico" ICON="data:image/png;base64,AAAA">Go</A>
    <DT><A HREF="https://pkg.go.dev">pkg.go.dev</A>
</DL><p>`

	store, err := importer.ParseHTML(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.Bookmarks) != 2 {
		t.Fatalf("expected 2 bookmarks, got %d", len(store.Bookmarks))
	}

	if got := store.Bookmarks[0].IconURL; got != "https://go.dev/favicon.ico" {
		t.Errorf("expected ICON_URI to be kept, got %q", got)
	}
	if got := store.Bookmarks[1].IconURL; got != "" {
		t.Errorf("expected no icon, got %q", got)
	}
}

func TestParseHTML_TitleFallsBackToURL(t *testing.T) {
	html := `<DL><p><DT><A HREF="https://untitled.example/"></A></DL>`

	store, err := importer.ParseHTML(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.Bookmarks) != 1 {
		t.Fatalf("expected 1 bookmark, got %d", len(store.Bookmarks))
	}
	if got := store.Bookmarks[0].Title; got != "https://untitled.example/" {
		t.Errorf("expected title to fall back to URL, got %q", got)
	}
}
