// SPDX-License-Identifier: MPL-2.0

package bundler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/subosito/gotenv"
)

// DotenvFile is read from the project directory when present.
const DotenvFile = ".env"

// loadDotenv returns the variables in dir/.env, or nil when the file does
// not exist.
func loadDotenv(dir string) (gotenv.Env, error) {
	path := filepath.Join(dir, DotenvFile)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	env, err := gotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", DotenvFile, err)
	}
	return env, nil
}

// processEnv renders the value substituted for process.env: the pass
// options overlaid with the dotenv variables, which win on conflicts.
func processEnv(opts Options, env gotenv.Env) (string, error) {
	values := map[string]any{
		"watch":   opts.Watch,
		"syncDir": opts.SyncDir,
	}
	for k, v := range env {
		values[k] = v
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
