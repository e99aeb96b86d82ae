// Package roles loads the list of images to process.
//
// The role file is a JSON array whose entries expose the display name at
// data.title and the image URL at data.img. Everything else in an entry is
// ignored.
package roles

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Record is one image to process.
type Record struct {
	Name     string
	ImageURL string
}

// ConfigError reports a role file that is missing, unreadable or malformed.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("role file %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

type entry struct {
	Data *struct {
		Title string `json:"title"`
		Img   string `json:"img"`
	} `json:"data"`
}

// Load reads path and returns its records in file order.
func Load(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	records, err := Parse(data)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	return records, nil
}

// Parse decodes a role document already in memory.
func Parse(data []byte) ([]Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("empty document")
	}

	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode roles: %w", err)
	}

	records := make([]Record, 0, len(entries))
	for i, e := range entries {
		if e.Data == nil {
			return nil, fmt.Errorf("entry %d: missing data object", i)
		}
		if e.Data.Title == "" {
			return nil, fmt.Errorf("entry %d: missing data.title", i)
		}
		if e.Data.Img == "" {
			return nil, fmt.Errorf("entry %d (%s): missing data.img", i, e.Data.Title)
		}

		records = append(records, Record{Name: e.Data.Title, ImageURL: e.Data.Img})
	}

	return records, nil
}
