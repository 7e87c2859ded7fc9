// control/load.go
// Author: momentics <momentics@gmail.com>
//
// JSON configuration file loading.

package control

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/momentics/nibblepipe/api"
)

// LoadFile reads a flat JSON object from path. Numbers are kept as
// json.Number so integral values survive without float rounding.
func LoadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a flat JSON object.
func Parse(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var cfg map[string]any
	if err := dec.Decode(&cfg); err != nil {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "malformed config").WithCause(err)
	}
	if cfg == nil {
		cfg = map[string]any{}
	}
	return cfg, nil
}
