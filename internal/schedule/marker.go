package schedule

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// marker is the persisted last-fire record. Exactly one field is used,
// depending on the mode.
type marker struct {
	LastFiredDay          string `json:"last_fired_day,omitempty"`
	LastFiredEpochSeconds int64  `json:"last_fired_epoch_seconds,omitempty"`
}

func loadMarker(path string) (marker, error) {
	var m marker
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return marker{}, err
	}
	return m, nil
}

func saveMarker(path string, m marker) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpName)
		}
	}()

	if err := json.NewEncoder(tmp).Encode(m); err != nil {
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
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	success = true
	return nil
}
