package bundle

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kokistudios/mark/internal/bookmark"
	"github.com/kokistudios/mark/internal/query"
)

// Ext is appended to bundle paths that lack it.
const Ext = ".mark"

const (
	manifestName = "manifest.yaml"
	recordDir    = "bookmarks"
)

// Manifest describes the contents of a bookmark bundle.
type Manifest struct {
	Version    string    `yaml:"version"`
	ExportedAt time.Time `yaml:"exported_at"`
	Query      string    `yaml:"query,omitempty"`
	Count      int       `yaml:"count"`
	Files      []string  `yaml:"files"`
}

// Export writes the active bookmarks matching term (all of them when term is
// empty) to a gzip'd tar at outputPath. It returns the path written and the
// number of bookmarks included.
func Export(col *bookmark.Collection, term, outputPath string) (string, int, error) {
	records := query.Execute(col.List(), term)

	if outputPath == "" {
		outputPath = "bookmarks" + Ext
	}
	// If outputPath is a directory, append the default filename
	if info, err := os.Stat(outputPath); err == nil && info.IsDir() {
		outputPath = filepath.Join(outputPath, "bookmarks"+Ext)
	} else if !strings.HasSuffix(outputPath, Ext) {
		outputPath += Ext
	}

	outFile, err := os.Create(outputPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create output file: %w", err)
	}
	defer outFile.Close()

	if err := write(outFile, records, term); err != nil {
		return "", 0, err
	}
	return outputPath, len(records), outFile.Close()
}

func write(w io.Writer, records []bookmark.Bookmark, term string) error {
	gw := gzip.NewWriter(w)
	tw := tar.NewWriter(gw)

	now := time.Now().UTC()
	manifest := Manifest{Version: "1", ExportedAt: now, Query: term, Count: len(records)}

	for _, b := range records {
		data, err := bookmark.Marshal(b)
		if err != nil {
			return err
		}
		name := path.Join(recordDir, b.UID+".yml")
		if err := writeEntry(tw, name, data, b.Updated); err != nil {
			return err
		}
		manifest.Files = append(manifest.Files, name)
	}

	manifestData, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := writeEntry(tw, manifestName, manifestData, now); err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to finish tar: %w", err)
	}
	return gw.Close()
}

func writeEntry(tw *tar.Writer, name string, content []byte, modTime time.Time) error {
	header := &tar.Header{
		Name:    name,
		Size:    int64(len(content)),
		Mode:    0644,
		ModTime: modTime,
	}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header: %w", err)
	}
	if _, err := tw.Write(content); err != nil {
		return fmt.Errorf("failed to write tar content: %w", err)
	}
	return nil
}

// ImportResult summarizes an import.
type ImportResult struct {
	Imported []bookmark.Bookmark
	// Skipped holds uids already present in the collection.
	Skipped []string
	// Realiased maps a bundled alias to the fresh alias it was given because
	// the original was taken.
	Realiased map[string]string
}

// Import reads a bundle into col. Bookmarks whose uid already exists are
// skipped; bookmarks whose alias is taken get a generated alias. If a write
// fails part way the returned result lists what was already imported.
func Import(col *bookmark.Collection, bundlePath string) (*ImportResult, error) {
	inFile, err := os.Open(bundlePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle: %w", err)
	}
	defer inFile.Close()

	gr, err := gzip.NewReader(inFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read gzip: %w", err)
	}
	defer gr.Close()

	tr := tar.NewReader(gr)

	var manifest Manifest
	fileContents := make(map[string][]byte)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read tar: %w", err)
		}

		content, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", header.Name, err)
		}

		if header.Name == manifestName {
			if err := yaml.Unmarshal(content, &manifest); err != nil {
				return nil, fmt.Errorf("failed to parse manifest: %w", err)
			}
		} else {
			fileContents[header.Name] = content
		}
	}

	if manifest.Version == "" {
		return nil, fmt.Errorf("invalid bundle: missing or empty manifest")
	}

	// Every entry is checked before the first write so a bad bundle leaves
	// the collection untouched.
	result := &ImportResult{Realiased: make(map[string]string)}
	var pending []bookmark.Bookmark
	seenUID := make(map[string]string)
	claimed := make(map[string]bool)
	for _, name := range manifest.Files {
		content, ok := fileContents[name]
		if !ok {
			return nil, fmt.Errorf("invalid bundle: %s listed in manifest but missing", name)
		}
		b, err := bookmark.Unmarshal(content)
		if err != nil {
			return nil, fmt.Errorf("invalid bundle entry %s: %w", name, err)
		}
		if prev, dup := seenUID[b.UID]; dup {
			return nil, fmt.Errorf("invalid bundle: uid %s appears in both %s and %s", b.UID, prev, name)
		}
		seenUID[b.UID] = name

		if _, exists := col.GetByUID(b.UID); exists {
			result.Skipped = append(result.Skipped, b.UID)
			continue
		}

		original := b.Alias
		b.Alias = strings.ToLower(strings.TrimSpace(b.Alias))
		if err := bookmark.ValidateAlias(b.Alias); err != nil {
			return nil, fmt.Errorf("invalid bundle entry %s: %w", name, err)
		}
		if col.AliasTaken(b.Alias) || claimed[b.Alias] {
			fresh, err := freshAlias(col, claimed)
			if err != nil {
				return nil, err
			}
			result.Realiased[original] = fresh
			b.Alias = fresh
		}
		claimed[b.Alias] = true
		pending = append(pending, b)
	}

	for _, b := range pending {
		stored, err := col.Put(b)
		if err != nil {
			return result, fmt.Errorf("failed to import %s: %w", b.UID, err)
		}
		result.Imported = append(result.Imported, stored)
	}

	return result, nil
}

// freshAlias generates an alias free both in col and among the aliases
// already claimed by this import.
func freshAlias(col *bookmark.Collection, claimed map[string]bool) (string, error) {
	for {
		a, err := col.GenerateAlias()
		if err != nil {
			return "", err
		}
		if !claimed[a] {
			return a, nil
		}
	}
}
