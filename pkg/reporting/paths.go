package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultPathManager resolves output paths under results/<PAIR>_<timeframe>/,
// mirroring the teacher's defaultOutputDir convention.
type DefaultPathManager struct{}

// NewDefaultPathManager creates a path manager.
func NewDefaultPathManager() *DefaultPathManager { return &DefaultPathManager{} }

// DefaultOutputDir returns the default output directory for a pair and
// timeframe's reports.
func (p *DefaultPathManager) DefaultOutputDir(pair, timeframe string) string {
	pair = strings.ToUpper(strings.TrimSpace(pair))
	timeframe = strings.ToLower(strings.TrimSpace(timeframe))
	if pair == "" {
		pair = "UNKNOWN"
	}
	if timeframe == "" {
		timeframe = "unknown"
	}
	return filepath.Join("results", fmt.Sprintf("%s_%s", pair, timeframe))
}

// EnsureDirectoryExists creates path's parent directory if missing.
func (p *DefaultPathManager) EnsureDirectoryExists(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
