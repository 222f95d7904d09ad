package bookmark

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const fileExt = ".yml"

// LoadIssue describes a file skipped while loading the collection.
type LoadIssue struct {
	Path   string
	Reason string
}

// Collection is the in-memory set of active bookmarks backed by one YAML
// file per bookmark in dir. Archived bookmarks live in dir/archive and are
// never loaded.
type Collection struct {
	dir     string
	byUID   map[string]Bookmark
	byAlias map[string]string // lowercased alias -> uid
	issues  []LoadIssue

	// Now is used for created/updated timestamps.
	Now func() time.Time
}

// Open creates dir if needed and loads every bookmark in it.
func Open(dir string) (*Collection, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data dir %s: %w", dir, err)
	}
	c := &Collection{
		dir: dir,
		Now: func() time.Time { return time.Now().Round(time.Second) },
	}
	if err := c.Refresh(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Collection) Dir() string { return c.dir }

func (c *Collection) ArchiveDir() string { return filepath.Join(c.dir, "archive") }

// Path returns the file backing the active bookmark with the given uid.
func (c *Collection) Path(uid string) string {
	return filepath.Join(c.dir, uid+fileExt)
}

// Refresh discards the in-memory snapshot and re-reads the data directory.
// Unreadable files and duplicates are skipped and reported by Issues.
func (c *Collection) Refresh() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("reading data dir: %w", err)
	}

	byUID := make(map[string]Bookmark)
	byAlias := make(map[string]string)
	var issues []LoadIssue

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != fileExt {
			continue
		}
		path := filepath.Join(c.dir, e.Name())
		b, err := readFile(path)
		if err != nil {
			issues = append(issues, LoadIssue{Path: path, Reason: err.Error()})
			continue
		}
		if _, dup := byUID[b.UID]; dup {
			issues = append(issues, LoadIssue{Path: path, Reason: fmt.Sprintf("duplicate uid %s", b.UID)})
			continue
		}
		key := strings.ToLower(b.Alias)
		if _, dup := byAlias[key]; dup {
			issues = append(issues, LoadIssue{Path: path, Reason: fmt.Sprintf("duplicate alias %s", b.Alias)})
			continue
		}
		b.Tags = NormalizeTags(b.Tags)
		byUID[b.UID] = b
		byAlias[key] = b.UID
	}

	c.byUID = byUID
	c.byAlias = byAlias
	c.issues = issues
	return nil
}

func readFile(path string) (Bookmark, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Bookmark{}, err
	}
	return Unmarshal(data)
}

// Issues returns the files skipped by the last Refresh.
func (c *Collection) Issues() []LoadIssue {
	return append([]LoadIssue(nil), c.issues...)
}

func (c *Collection) Len() int { return len(c.byUID) }

// List returns all active bookmarks ordered by alias, case-insensitively.
func (c *Collection) List() []Bookmark {
	out := make([]Bookmark, 0, len(c.byUID))
	for _, b := range c.byUID {
		out = append(out, b.Clone())
	}
	SortByAlias(out)
	return out
}

// SortByAlias orders bookmarks by lowercased alias, then uid.
func SortByAlias(bs []Bookmark) {
	sort.SliceStable(bs, func(i, j int) bool {
		ai, aj := strings.ToLower(bs[i].Alias), strings.ToLower(bs[j].Alias)
		if ai != aj {
			return ai < aj
		}
		return bs[i].UID < bs[j].UID
	})
}

// Get looks up an active bookmark by alias, ignoring case.
func (c *Collection) Get(alias string) (Bookmark, error) {
	uid, ok := c.byAlias[strings.ToLower(alias)]
	if !ok {
		return Bookmark{}, fmt.Errorf("%w: %s", ErrNotFound, alias)
	}
	return c.byUID[uid].Clone(), nil
}

// GetByUID looks up an active bookmark by uid.
func (c *Collection) GetByUID(uid string) (Bookmark, bool) {
	b, ok := c.byUID[uid]
	if !ok {
		return Bookmark{}, false
	}
	return b.Clone(), true
}

// AliasTaken reports whether alias is used by an active bookmark.
func (c *Collection) AliasTaken(alias string) bool {
	_, ok := c.byAlias[strings.ToLower(alias)]
	return ok
}

// GenerateAlias returns a random alias not used by any active bookmark.
func (c *Collection) GenerateAlias() (string, error) {
	for {
		a, err := randomAlias()
		if err != nil {
			return "", err
		}
		if !c.AliasTaken(a) {
			return a, nil
		}
	}
}

// Add creates a bookmark with a fresh uid and writes it to disk. An empty
// alias is replaced with a generated one.
func (c *Collection) Add(n New) (Bookmark, error) {
	alias := strings.ToLower(strings.TrimSpace(n.Alias))
	if alias == "" {
		var err error
		if alias, err = c.GenerateAlias(); err != nil {
			return Bookmark{}, err
		}
	} else {
		if err := ValidateAlias(alias); err != nil {
			return Bookmark{}, err
		}
		if c.AliasTaken(alias) {
			return Bookmark{}, fmt.Errorf("%w: %s", ErrAliasExists, alias)
		}
	}

	now := c.Now()
	b := Bookmark{
		UID:         newUID(),
		Created:     now,
		Updated:     now,
		Alias:       alias,
		Title:       strings.TrimSpace(n.Title),
		Description: strings.TrimSpace(n.Description),
		URL:         strings.TrimSpace(n.URL),
		Tags:        NormalizeTags(n.Tags),
	}
	if err := c.write(b); err != nil {
		return Bookmark{}, err
	}
	return b.Clone(), nil
}

// Put stores b under its own uid and returns the stored record. It is used
// when importing records created elsewhere; the uid and alias must both be
// free. The alias is stored lowercase.
func (c *Collection) Put(b Bookmark) (Bookmark, error) {
	if err := ValidateUID(b.UID); err != nil {
		return Bookmark{}, err
	}
	if _, exists := c.byUID[b.UID]; exists {
		return Bookmark{}, fmt.Errorf("uid %s already present", b.UID)
	}
	b.Alias = strings.ToLower(strings.TrimSpace(b.Alias))
	if err := ValidateAlias(b.Alias); err != nil {
		return Bookmark{}, err
	}
	if c.AliasTaken(b.Alias) {
		return Bookmark{}, fmt.Errorf("%w: %s", ErrAliasExists, b.Alias)
	}
	b.Tags = NormalizeTags(b.Tags)
	if err := c.write(b); err != nil {
		return Bookmark{}, err
	}
	return b.Clone(), nil
}

// Modify applies m to the bookmark with the given alias and refreshes its
// updated timestamp.
func (c *Collection) Modify(alias string, m Modification) (Bookmark, error) {
	b, err := c.Get(alias)
	if err != nil {
		return Bookmark{}, err
	}

	if m.Alias != nil {
		next := strings.ToLower(strings.TrimSpace(*m.Alias))
		if err := ValidateAlias(next); err != nil {
			return Bookmark{}, err
		}
		if next != strings.ToLower(b.Alias) && c.AliasTaken(next) {
			return Bookmark{}, fmt.Errorf("%w: %s", ErrAliasExists, next)
		}
		b.Alias = next
	}
	if m.Title != nil {
		b.Title = strings.TrimSpace(*m.Title)
	}
	if m.Description != nil {
		b.Description = strings.TrimSpace(*m.Description)
	}
	if m.URL != nil {
		b.URL = strings.TrimSpace(*m.URL)
	}
	if m.SetTags {
		b.Tags = applyTags(b.Tags, m.Tags, m.TagOp)
	}
	b.Updated = c.Now()

	if err := c.write(b); err != nil {
		return Bookmark{}, err
	}
	return b.Clone(), nil
}

// Unset clears description or tags.
func (c *Collection) Unset(alias, field string) (Bookmark, error) {
	b, err := c.Get(alias)
	if err != nil {
		return Bookmark{}, err
	}
	switch strings.ToLower(field) {
	case "description":
		b.Description = ""
	case "tags":
		b.Tags = nil
	default:
		return Bookmark{}, fmt.Errorf("%w: %s", ErrFieldNotClearable, field)
	}
	b.Updated = c.Now()
	if err := c.write(b); err != nil {
		return Bookmark{}, err
	}
	return b.Clone(), nil
}

// Delete removes the bookmark file. This cannot be undone.
func (c *Collection) Delete(alias string) error {
	b, err := c.Get(alias)
	if err != nil {
		return err
	}
	if err := os.Remove(c.Path(b.UID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting %s: %w", b.Alias, err)
	}
	c.forget(b)
	return nil
}

// Archive moves the bookmark file into the archive directory, which frees
// its alias for reuse.
func (c *Collection) Archive(alias string) error {
	b, err := c.Get(alias)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.ArchiveDir(), 0755); err != nil {
		return fmt.Errorf("creating archive dir: %w", err)
	}
	dst := filepath.Join(c.ArchiveDir(), b.UID+fileExt)
	if err := os.Rename(c.Path(b.UID), dst); err != nil {
		return fmt.Errorf("archiving %s: %w", b.Alias, err)
	}
	c.forget(b)
	return nil
}

func (c *Collection) forget(b Bookmark) {
	delete(c.byUID, b.UID)
	delete(c.byAlias, strings.ToLower(b.Alias))
}

// write persists b and updates the in-memory indexes, dropping any stale
// alias entry for the same uid.
func (c *Collection) write(b Bookmark) error {
	data, err := Marshal(b)
	if err != nil {
		return err
	}
	tmp := c.Path(b.UID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing bookmark: %w", err)
	}
	if err := os.Rename(tmp, c.Path(b.UID)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing bookmark: %w", err)
	}

	if old, ok := c.byUID[b.UID]; ok {
		delete(c.byAlias, strings.ToLower(old.Alias))
	}
	c.byUID[b.UID] = b.Clone()
	c.byAlias[strings.ToLower(b.Alias)] = b.UID
	return nil
}

// TagCount is a tag with the number of active bookmarks carrying it.
type TagCount struct {
	Tag   string
	Count int
}

// Tags returns every tag in use with its count, sorted by name. Tags that
// differ only in case are merged under the first spelling in alias order.
func (c *Collection) Tags() []TagCount {
	counts := make(map[string]*TagCount)
	for _, b := range c.List() {
		for _, t := range b.Tags {
			key := strings.ToLower(t)
			if tc, ok := counts[key]; ok {
				tc.Count++
				continue
			}
			counts[key] = &TagCount{Tag: t, Count: 1}
		}
	}
	out := make([]TagCount, 0, len(counts))
	for _, tc := range counts {
		out = append(out, *tc)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Tag) < strings.ToLower(out[j].Tag)
	})
	return out
}

// WithTag returns the active bookmarks carrying tag, in alias order.
func (c *Collection) WithTag(tag string) []Bookmark {
	var out []Bookmark
	for _, b := range c.List() {
		if b.HasTag(tag) {
			out = append(out, b)
		}
	}
	return out
}
