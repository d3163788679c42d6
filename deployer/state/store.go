package state

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

func isGzip(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".gz")
}

func isYAML(name string) bool {
	if isGzip(name) {
		name = name[:len(name)-len(".gz")]
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Encode renders the deployment as YAML for .yaml/.yml names and JSON otherwise.
// A .gz suffix gzips the result.
func (d *Deployment) Encode(name string) ([]byte, error) {
	data, err := d.encode(name)
	if err != nil || !isGzip(name) {
		return data, err
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress deployment: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress deployment: %w", err)
	}
	return buf.Bytes(), nil
}

func (d *Deployment) encode(name string) ([]byte, error) {
	if isYAML(name) {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return nil, fmt.Errorf("failed to encode deployment: %w", err)
		}
		return buf.Bytes(), nil
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode deployment: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses a deployment written by Encode.
func Decode(name string, data []byte) (*Deployment, error) {
	if isGzip(name) {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decompress deployment %s: %w", name, err)
		}
		defer zr.Close()
		if data, err = io.ReadAll(zr); err != nil {
			return nil, fmt.Errorf("failed to decompress deployment %s: %w", name, err)
		}
	}
	var d Deployment
	var err error
	if isYAML(name) {
		err = yaml.Unmarshal(data, &d)
	} else {
		err = json.Unmarshal(data, &d)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode deployment %s: %w", name, err)
	}
	if d.Phase == "" {
		return nil, fmt.Errorf("deployment %s has no phase", name)
	}
	return &d, nil
}

// Write stores the deployment at path, creating parent directories.
func Write(fs afero.Fs, path string, d *Deployment) error {
	data, err := d.Encode(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write deployment: %w", err)
	}
	return nil
}

func Read(fs afero.Fs, path string) (*Deployment, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read deployment: %w", err)
	}
	return Decode(path, data)
}

// Fetcher retrieves the raw record behind a URL.
type Fetcher func(ctx context.Context, u *url.URL) ([]byte, error)

// Loader loads deployment records by URL, dispatching on the URL scheme.
type Loader struct {
	fetchers map[string]Fetcher
}

// NewLoader serves file paths from fs, and http and https URLs with client.
func NewLoader(fs afero.Fs, client *http.Client) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	fileFetcher := func(ctx context.Context, u *url.URL) ([]byte, error) {
		p := u.Path
		if u.Scheme == "" {
			p = u.String()
		} else if u.Host != "" {
			p = filepath.Join(u.Host, u.Path)
		}
		return afero.ReadFile(fs, p)
	}
	httpFetcher := func(ctx context.Context, u *url.URL) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %s", resp.Status)
		}
		return io.ReadAll(resp.Body)
	}
	return &Loader{fetchers: map[string]Fetcher{
		"":      fileFetcher,
		"file":  fileFetcher,
		"http":  httpFetcher,
		"https": httpFetcher,
	}}
}

// Register adds or replaces the fetcher of a scheme.
func (l *Loader) Register(scheme string, f Fetcher) {
	l.fetchers[strings.ToLower(scheme)] = f
}

func (l *Loader) Load(ctx context.Context, recordURL string) (*Deployment, error) {
	u, err := url.Parse(recordURL)
	if err != nil {
		return nil, fmt.Errorf("error parsing URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	fetch, ok := l.fetchers[scheme]
	if !ok {
		return nil, fmt.Errorf("unsupported URL scheme: %s", scheme)
	}
	data, err := fetch(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("error fetching deployment: %w", err)
	}
	return Decode(u.Path, data)
}
