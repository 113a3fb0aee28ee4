package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// documentVersion is bumped whenever the on-disk layout changes. Documents
// with another version are treated as empty and overwritten on next write.
const documentVersion = 1

var errUnsupportedVersion = errors.New("unsupported credential file version")

type (
	// document is the JSON-serialized content of the store file. It can hold
	// several keys so unrelated slots survive each other's writes.
	document struct {
		Version int              `json:"version"`
		Entries map[string]entry `json:"entries"`
	}

	entry struct {
		Value     string    `json:"value"`
		Origin    string    `json:"origin"`
		UpdatedAt time.Time `json:"updated_at"`
	}
)

// slotState is the comparable view of one key used to detect changes.
type slotState struct {
	present   bool
	value     string
	origin    string
	updatedAt int64
}

func emptyDocument() *document {
	return &document{Version: documentVersion, Entries: make(map[string]entry)}
}

// readDocument loads the document at path. A missing file yields an empty
// document and no error.
func readDocument(path string) (*document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return emptyDocument(), nil
		}
		return nil, fmt.Errorf("could not read credential file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid credential file: %w", err)
	}
	if doc.Version != documentVersion {
		return nil, fmt.Errorf("%w: %d", errUnsupportedVersion, doc.Version)
	}
	if doc.Entries == nil {
		doc.Entries = make(map[string]entry)
	}
	return &doc, nil
}

// writeTo replaces path atomically: readers see either the old or the new
// document, never a partial one.
func (d *document) writeTo(path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (d *document) state(key string) slotState {
	e, ok := d.Entries[key]
	if !ok {
		return slotState{}
	}
	return slotState{present: true, value: e.Value, origin: e.Origin, updatedAt: e.UpdatedAt.UnixNano()}
}
