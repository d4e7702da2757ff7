package archive

import (
	"fmt"

	"github.com/sbinet/npyio/npz"
)

// WriteNPZ stores every array as a one-dimensional float64 entry of an npz file
func WriteNPZ(path string, a *Archive) error {
	w, err := npz.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	entries := []struct {
		key string
		val []float64
	}{
		{KeyFrequency, a.FrequencyGHz},
		{KeyS11, a.S11dB},
		{KeyS21, a.S21dB},
		{KeyTime, a.Time},
	}
	for _, name := range a.FieldNames() {
		entries = append(entries, struct {
			key string
			val []float64
		}{FieldPrefix + name, a.Fields[name]})
	}

	for _, e := range entries {
		if err := w.Write(e.key, e.val); err != nil {
			w.Close()
			return fmt.Errorf("failed to write %s: %w", e.key, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
