package bookmark

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

var (
	ErrNotFound          = errors.New("no such bookmark")
	ErrAliasExists       = errors.New("alias already in use")
	ErrFieldNotClearable = errors.New("field cannot be unset")
)

type Bookmark struct {
	UID         string    `yaml:"uid" json:"uid"`
	Created     time.Time `yaml:"created" json:"created"`
	Updated     time.Time `yaml:"updated" json:"updated"`
	Alias       string    `yaml:"alias" json:"alias"`
	Title       string    `yaml:"title" json:"title"`
	Description string    `yaml:"description" json:"description"`
	URL         string    `yaml:"url" json:"url"`
	Tags        []string  `yaml:"tags" json:"tags"`
}

// document is the on-disk layout of a bookmark file.
type document struct {
	Bookmark *Bookmark `yaml:"bookmark"`
}

// Marshal encodes b in the on-disk file format.
func Marshal(b Bookmark) ([]byte, error) {
	data, err := yaml.Marshal(document{Bookmark: &b})
	if err != nil {
		return nil, fmt.Errorf("encoding bookmark: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a bookmark file, rejecting files without a uid or alias.
func Unmarshal(data []byte) (Bookmark, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Bookmark{}, fmt.Errorf("invalid YAML: %w", err)
	}
	if doc.Bookmark == nil {
		return Bookmark{}, fmt.Errorf("no bookmark entry")
	}
	if err := ValidateUID(doc.Bookmark.UID); err != nil {
		return Bookmark{}, err
	}
	if doc.Bookmark.Alias == "" {
		return Bookmark{}, fmt.Errorf("missing alias")
	}
	return *doc.Bookmark, nil
}

// New holds the user-supplied fields for a bookmark about to be created.
type New struct {
	Alias       string
	Title       string
	Description string
	URL         string
	Tags        []string
}

// TagOp selects how Modification.Tags is applied.
type TagOp int

const (
	TagsReplace TagOp = iota
	TagsAdd
	TagsRemove
)

// Modification is a partial update. Nil fields are left untouched.
type Modification struct {
	Alias       *string
	Title       *string
	Description *string
	URL         *string
	Tags        []string
	TagOp       TagOp
	SetTags     bool
}

// ParseTagArg interprets a tag argument from the command line: "+a,b" adds,
// "~a,b" removes, anything else replaces the tag set.
func ParseTagArg(arg string) ([]string, TagOp) {
	op := TagsReplace
	switch {
	case strings.HasPrefix(arg, "+"):
		op = TagsAdd
		arg = arg[1:]
	case strings.HasPrefix(arg, "~"):
		op = TagsRemove
		arg = arg[1:]
	}
	return SplitTags(arg), op
}

// SplitTags splits a comma-separated tag list, trimming blanks.
func SplitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// NormalizeTags drops blanks and case-insensitive duplicates, keeping the
// first spelling seen, and sorts the result.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}

func applyTags(current, tags []string, op TagOp) []string {
	switch op {
	case TagsAdd:
		return NormalizeTags(append(append([]string{}, current...), tags...))
	case TagsRemove:
		drop := make(map[string]bool, len(tags))
		for _, t := range tags {
			drop[strings.ToLower(t)] = true
		}
		var kept []string
		for _, t := range current {
			if !drop[strings.ToLower(t)] {
				kept = append(kept, t)
			}
		}
		return NormalizeTags(kept)
	default:
		return NormalizeTags(tags)
	}
}

// HasTag reports whether b carries tag, ignoring case.
func (b Bookmark) HasTag(tag string) bool {
	for _, t := range b.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with b.
func (b Bookmark) Clone() Bookmark {
	if b.Tags != nil {
		b.Tags = append([]string{}, b.Tags...)
	}
	return b
}

func newUID() string {
	return uuid.New().String()
}

const aliasAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// AliasLength is the length of generated aliases.
const AliasLength = 4

func randomAlias() (string, error) {
	var sb strings.Builder
	max := big.NewInt(int64(len(aliasAlphabet)))
	for i := 0; i < AliasLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generating alias: %w", err)
		}
		sb.WriteByte(aliasAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// ValidateAlias rejects aliases that cannot be typed as a single argument
// or found again with an alias= search clause.
func ValidateAlias(alias string) error {
	if alias == "" {
		return fmt.Errorf("alias cannot be empty")
	}
	if strings.ContainsAny(alias, " \t\n/\\") {
		return fmt.Errorf("alias %q must not contain whitespace or slashes", alias)
	}
	if strings.ContainsAny(alias, ",%=") {
		return fmt.Errorf("alias %q must not contain %q", alias, ",%=")
	}
	return nil
}

// ValidateUID rejects uids that do not name a plain file in the data
// directory.
func ValidateUID(uid string) error {
	if uid == "" {
		return fmt.Errorf("missing uid")
	}
	if uid == "." || uid == ".." || strings.ContainsAny(uid, "/\\\x00") || filepath.Base(uid) != uid {
		return fmt.Errorf("invalid uid %q", uid)
	}
	return nil
}
