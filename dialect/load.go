package dialect

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// maxFileSize caps dialect file reads. Full dialects with descriptions run a
// few megabytes; anything larger is a corrupt or wrong file.
const maxFileSize = 16 * 1024 * 1024

// tableFile mirrors the generator's JSON layout. Enums and description text
// are present in the file but not needed for decoding, so they are ignored.
type tableFile struct {
	SchemaVersion string `json:"schema_version"`
	Dialect       struct {
		Name    string `json:"name"`
		Version int    `json:"version"`
	} `json:"dialect"`
	Messages map[string]*Message `json:"messages"`
}

// Load reads and parses a dialect JSON file. The file must have a .json
// extension and be under the size cap. Partial tables are fine; a table
// lacking HEARTBEAT gets the built-in definition injected so connection
// liveness works against any vehicle.
func Load(path string) (*Table, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("dialect file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat dialect file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("dialect file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read dialect file: %w", err)
	}

	return Parse(data)
}

// Parse builds a Table from raw dialect JSON.
func Parse(data []byte) (*Table, error) {
	var tf tableFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("failed to parse dialect JSON: %w", err)
	}
	if len(tf.Messages) == 0 {
		return nil, fmt.Errorf("dialect contains no messages")
	}

	t := &Table{
		SchemaVersion: tf.SchemaVersion,
		Name:          tf.Dialect.Name,
		Version:       tf.Dialect.Version,
		byID:          make(map[uint32]*Message, len(tf.Messages)+1),
		byName:        make(map[string]*Message, len(tf.Messages)+1),
	}

	for key, m := range tf.Messages {
		id, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid message key %q: %w", key, err)
		}
		if uint32(id) != m.ID {
			return nil, fmt.Errorf("message key %q does not match id %d", key, m.ID)
		}
		if err := m.validate(); err != nil {
			return nil, err
		}
		if _, dup := t.byName[m.Name]; dup {
			return nil, fmt.Errorf("duplicate message name %s", m.Name)
		}
		t.byID[m.ID] = m
		t.byName[m.Name] = m
	}

	if _, ok := t.byID[heartbeatID]; !ok {
		hb := Heartbeat()
		t.byID[hb.ID] = hb
		t.byName[hb.Name] = hb
	}

	return t, nil
}
