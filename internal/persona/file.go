package persona

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// Decode parses a profile from YAML or JSON. JSON is valid YAML, so the
// format argument only matters for error messages and strictness.
func Decode(data []byte, format string) (*Profile, error) {
	var p Profile
	switch strings.ToLower(format) {
	case "json", ".json":
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode json profile: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode yaml profile: %w", err)
		}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Encode renders a profile as YAML, or JSON when format is "json".
func Encode(p *Profile, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "json", ".json":
		return json.MarshalIndent(p, "", "  ")
	default:
		return yaml.Marshal(p)
	}
}

// Load reads a profile file. The format follows the extension. A profile
// without a name takes the file's base name.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	ext := filepath.Ext(path)
	p, err := Decode(data, ext)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if p.Name == "" {
		p.Name = Slugify(strings.TrimSuffix(filepath.Base(path), ext))
	}
	return p, nil
}

// Save writes a profile, choosing the format from the extension.
func Save(path string, p *Profile) error {
	data, err := Encode(p, filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create profile dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// IsProfileFile reports whether a file name looks like a profile.
func IsProfileFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// LoadDir loads every profile file in dir, keyed by profile name.
func LoadDir(ctx context.Context, dir string) (map[string]*Profile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read persona dir: %w", err)
	}

	var mu sync.Mutex
	out := make(map[string]*Profile)
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, e := range entries {
		if e.IsDir() || !IsProfileFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		g.Go(func() error {
			p, err := Load(path)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			out[p.Name] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
