package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
)

var errTrailingJSON = errors.New("unexpected data after JSON value")

// readJSON decodes exactly one JSON value from path into out. A missing file
// is an error.
func readJSON(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(out); err != nil {
		return err
	}
	if dec.More() {
		return errTrailingJSON
	}
	return nil
}

func writeJSON(path string, v any, mode os.FileMode) error {
	b, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		return err
	}
	return replaceFile(path, append(b, '\n'), mode)
}
