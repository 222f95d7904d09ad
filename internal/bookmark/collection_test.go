package bookmark

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func openTemp(t *testing.T) *Collection {
	t.Helper()
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c.Now = func() time.Time { return fixed }
	return c
}

func addBookmark(t *testing.T, c *Collection, n New) Bookmark {
	t.Helper()
	b, err := c.Add(n)
	if err != nil {
		t.Fatalf("Add(%+v) failed: %v", n, err)
	}
	return b
}

func TestAddAndReload(t *testing.T) {
	c := openTemp(t)
	b := addBookmark(t, c, New{
		Alias: "Docs",
		Title: "Project X Docs",
		URL:   "https://domain.tld/x",
		Tags:  []string{"testing", "dev", "DEV"},
	})

	if b.UID == "" {
		t.Fatal("expected a uid")
	}
	if b.Alias != "docs" {
		t.Errorf("expected alias stored lowercase, got %q", b.Alias)
	}
	if diff := cmp.Diff([]string{"dev", "testing"}, b.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(c.Path(b.UID)); err != nil {
		t.Fatalf("expected bookmark file: %v", err)
	}

	reloaded, err := Open(c.Dir())
	if err != nil {
		t.Fatal(err)
	}
	got, err := reloaded.Get("DOCS")
	if err != nil {
		t.Fatalf("Get after reload: %v", err)
	}
	if diff := cmp.Diff(b, got); diff != "" {
		t.Errorf("reloaded bookmark mismatch (-want +got):\n%s", diff)
	}
}

func TestFileLayout(t *testing.T) {
	c := openTemp(t)
	b := addBookmark(t, c, New{Alias: "abcd", URL: "https://example.com"})

	data, err := os.ReadFile(c.Path(b.UID))
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{"bookmark:", "uid: " + b.UID, "alias: abcd", "url: https://example.com"} {
		if !strings.Contains(text, want) {
			t.Errorf("bookmark file missing %q:\n%s", want, text)
		}
	}
}

func TestGeneratedAlias(t *testing.T) {
	c := openTemp(t)
	b := addBookmark(t, c, New{URL: "https://example.com"})
	if len(b.Alias) != AliasLength {
		t.Fatalf("expected %d-char alias, got %q", AliasLength, b.Alias)
	}
	for _, r := range b.Alias {
		if !strings.ContainsRune(aliasAlphabet, r) {
			t.Errorf("alias %q has unexpected rune %q", b.Alias, r)
		}
	}
}

func TestAddDuplicateAlias(t *testing.T) {
	c := openTemp(t)
	addBookmark(t, c, New{Alias: "work"})
	_, err := c.Add(New{Alias: "WORK"})
	if !errors.Is(err, ErrAliasExists) {
		t.Errorf("expected ErrAliasExists, got %v", err)
	}
}

func TestGetNotFound(t *testing.T) {
	c := openTemp(t)
	_, err := c.Get("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListSortedByAlias(t *testing.T) {
	c := openTemp(t)
	for _, a := range []string{"zeta", "Alpha", "mid"} {
		addBookmark(t, c, New{Alias: a})
	}
	var aliases []string
	for _, b := range c.List() {
		aliases = append(aliases, b.Alias)
	}
	if diff := cmp.Diff([]string{"alpha", "mid", "zeta"}, aliases); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestModify(t *testing.T) {
	c := openTemp(t)
	b := addBookmark(t, c, New{Alias: "one", Title: "Old", Tags: []string{"a", "b"}})
	later := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	c.Now = func() time.Time { return later }

	title := "New"
	alias := "two"
	got, err := c.Modify("one", Modification{Title: &title, Alias: &alias})
	if err != nil {
		t.Fatalf("Modify failed: %v", err)
	}
	if got.Title != "New" || got.Alias != "two" {
		t.Errorf("unexpected result: %+v", got)
	}
	if !got.Updated.Equal(later) || !got.Created.Equal(b.Created) {
		t.Errorf("timestamps wrong: created=%v updated=%v", got.Created, got.Updated)
	}
	if _, err := c.Get("one"); !errors.Is(err, ErrNotFound) {
		t.Error("old alias should be released")
	}
	if _, err := c.Get("two"); err != nil {
		t.Errorf("new alias should resolve: %v", err)
	}
}

func TestModifyAliasCollision(t *testing.T) {
	c := openTemp(t)
	addBookmark(t, c, New{Alias: "one"})
	addBookmark(t, c, New{Alias: "two"})
	taken := "TWO"
	if _, err := c.Modify("one", Modification{Alias: &taken}); !errors.Is(err, ErrAliasExists) {
		t.Errorf("expected ErrAliasExists, got %v", err)
	}
	same := "One"
	if _, err := c.Modify("one", Modification{Alias: &same}); err != nil {
		t.Errorf("renaming to the same alias should succeed: %v", err)
	}
}

func TestModifyTags(t *testing.T) {
	tests := []struct {
		name string
		arg  string
		want []string
	}{
		{"replace", "x,y", []string{"x", "y"}},
		{"add", "+c,A", []string{"a", "b", "c"}},
		{"remove", "~B", []string{"a"}},
		{"replace empty", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := openTemp(t)
			addBookmark(t, c, New{Alias: "one", Tags: []string{"a", "b"}})
			tags, op := ParseTagArg(tt.arg)
			got, err := c.Modify("one", Modification{Tags: tags, TagOp: op, SetTags: true})
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got.Tags); diff != "" {
				t.Errorf("tags mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUnset(t *testing.T) {
	c := openTemp(t)
	addBookmark(t, c, New{Alias: "one", Description: "desc", Tags: []string{"a"}})

	got, err := c.Unset("one", "description")
	if err != nil || got.Description != "" {
		t.Errorf("unset description: %+v, %v", got, err)
	}
	got, err = c.Unset("one", "tags")
	if err != nil || len(got.Tags) != 0 {
		t.Errorf("unset tags: %+v, %v", got, err)
	}
	if _, err := c.Unset("one", "title"); !errors.Is(err, ErrFieldNotClearable) {
		t.Errorf("expected ErrFieldNotClearable, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	c := openTemp(t)
	b := addBookmark(t, c, New{Alias: "gone"})

	if err := c.Delete("gone"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(c.Path(b.UID)); !os.IsNotExist(err) {
		t.Error("expected file removed")
	}
	if c.Len() != 0 {
		t.Errorf("expected empty collection, got %d", c.Len())
	}
	if err := c.Delete("gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestArchiveFreesAlias(t *testing.T) {
	c := openTemp(t)
	b := addBookmark(t, c, New{Alias: "old"})

	if err := c.Archive("old"); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(c.ArchiveDir(), b.UID+".yml")); err != nil {
		t.Errorf("expected archived file: %v", err)
	}
	if err := c.Refresh(); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 0 {
		t.Error("archived bookmark must not be loaded")
	}
	if _, err := c.Add(New{Alias: "old"}); err != nil {
		t.Errorf("alias should be reusable after archive: %v", err)
	}
}

func TestRefreshSkipsBadFiles(t *testing.T) {
	c := openTemp(t)
	good := addBookmark(t, c, New{Alias: "good"})

	files := map[string]string{
		"broken.yml":      "bookmark: [unclosed\n",
		"empty.yml":       "other: 1\n",
		"nouid.yml":       "bookmark:\n  alias: nouid\n",
		"zz-dupuid.yml":   "bookmark:\n  uid: " + good.UID + "\n  alias: zzzz\n",
		"zz-dupalias.yml": "bookmark:\n  uid: abc-1234\n  alias: GOOD\n",
		"notes.txt":       "ignored",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(c.Dir(), name), []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}

	if err := c.Refresh(); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 1 {
		t.Errorf("expected only the good bookmark, got %d", c.Len())
	}
	// Files are read in name order, so the zz- duplicates lose to the uuid file.
	if got := len(c.Issues()); got != 5 {
		t.Errorf("expected 5 load issues, got %d: %+v", got, c.Issues())
	}
}

func TestTags(t *testing.T) {
	c := openTemp(t)
	addBookmark(t, c, New{Alias: "a", Tags: []string{"dev", "go"}})
	addBookmark(t, c, New{Alias: "b", Tags: []string{"Dev"}})
	addBookmark(t, c, New{Alias: "c"})

	want := []TagCount{{Tag: "dev", Count: 2}, {Tag: "go", Count: 1}}
	if diff := cmp.Diff(want, c.Tags()); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if got := c.WithTag("DEV"); len(got) != 2 {
		t.Errorf("expected 2 bookmarks tagged dev, got %d", len(got))
	}
}

func TestPut(t *testing.T) {
	c := openTemp(t)
	b := Bookmark{UID: "fixed-uid", Alias: "Imp", URL: "https://example.com"}
	got, err := c.Put(b)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if got.Alias != "imp" {
		t.Errorf("expected alias stored lowercase, got %q", got.Alias)
	}
	if stored, ok := c.GetByUID("fixed-uid"); !ok || stored.Alias != "imp" {
		t.Errorf("expected bookmark by uid with lowercase alias, got %+v", stored)
	}
	if _, err := c.Put(b); err == nil {
		t.Error("expected error on duplicate uid")
	}
}

func TestPutRejectsPathUIDs(t *testing.T) {
	root := t.TempDir()
	c, err := Open(filepath.Join(root, "data"))
	if err != nil {
		t.Fatal(err)
	}
	for _, uid := range []string{"../escaped", "sub/dir", `..\win`, "..", "."} {
		if _, err := c.Put(Bookmark{UID: uid, Alias: "evil"}); err == nil {
			t.Errorf("Put accepted uid %q", uid)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "escaped.yml")); !os.IsNotExist(err) {
		t.Errorf("expected nothing written outside the data dir, stat err %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("expected empty collection, got %d", c.Len())
	}
}

func TestUnmarshalRejectsPathUID(t *testing.T) {
	if _, err := Unmarshal([]byte("bookmark:\n  uid: ../x\n  alias: x\n")); err == nil {
		t.Error("expected error for uid with a path separator")
	}
}

func TestValidateAlias(t *testing.T) {
	tests := []struct {
		alias string
		ok    bool
	}{
		{"docs", true},
		{"go-dev_2", true},
		{"", false},
		{"two words", false},
		{"a/b", false},
		{"a,b", false},
		{"x%y", false},
		{"k=v", false},
	}
	for _, tt := range tests {
		t.Run(tt.alias, func(t *testing.T) {
			err := ValidateAlias(tt.alias)
			if (err == nil) != tt.ok {
				t.Errorf("ValidateAlias(%q) = %v, want ok=%v", tt.alias, err, tt.ok)
			}
		})
	}
}

func TestAddRejectsSearchSyntaxInAlias(t *testing.T) {
	c := openTemp(t)
	if _, err := c.Add(New{Alias: "a,b"}); err == nil {
		t.Error("expected alias with a comma to be rejected")
	}
}
