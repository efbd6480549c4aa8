package docmap

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	pkgerrors "github.com/webcrawl/webdex/pkg/errors"
)

// jsonStore persists the map as a single JSON object keyed by the decimal
// doc id, written atomically via a temp file.
type jsonStore struct {
	path string
}

func (s *jsonStore) Save(m *Map) error {
	out := make(map[string]string, len(m.byID))
	for id, url := range m.byID {
		out[strconv.FormatInt(id, 10)] = url
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshaling doc map: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing doc map: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("renaming doc map: %w", err)
	}
	return nil
}

func (s *jsonStore) Load() (*Map, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pkgerrors.Newf(pkgerrors.ErrIndexMissing, "doc map %s not found", s.path)
		}
		return nil, fmt.Errorf("reading doc map: %w", err)
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing doc map: %w", err)
	}
	m := New()
	for key, url := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing doc map key %q: %w", key, err)
		}
		m.Add(id, url)
	}
	return m, nil
}
