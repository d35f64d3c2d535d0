package models

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/yegors/audiokit/pkg/logger"
)

// ErrModelMissing is returned when a model is not cached and downloads are
// disabled.
var ErrModelMissing = errors.New("model not downloaded")

// progressStep is how often download progress is logged, in percent.
const progressStep = 10

// Manager keeps downloaded models in a cache directory.
type Manager struct {
	dir          string
	autoDownload bool
	httpClient   *http.Client
	logger       *logger.Logger
}

// NewManager creates a model manager rooted at dir
func NewManager(dir string, autoDownload bool, httpClient *http.Client, log *logger.Logger) (*Manager, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create model directory %s: %w", dir, err)
	}
	return &Manager{
		dir:          dir,
		autoDownload: autoDownload,
		httpClient:   httpClient,
		logger:       log.Named("models"),
	}, nil
}

// Path returns where info lives on disk.
func (m *Manager) Path(info ModelInfo) string {
	if info.LocalPath != "" {
		return info.LocalPath
	}
	return filepath.Join(m.dir, string(info.Engine), info.Filename)
}

// IsDownloaded reports whether the model is present.
func (m *Manager) IsDownloaded(info ModelInfo) bool {
	stat, err := os.Stat(m.Path(info))
	if err != nil {
		return false
	}
	if info.IsZip || info.Engine == EngineVosk {
		return stat.IsDir()
	}
	return stat.Size() > 0
}

// Ensure returns the on-disk path of info, downloading it first when needed
// and allowed.
func (m *Manager) Ensure(ctx context.Context, info ModelInfo) (string, error) {
	path := m.Path(info)
	if m.IsDownloaded(info) {
		return path, nil
	}
	if info.LocalPath != "" || info.URL == "" {
		return "", fmt.Errorf("%w: %s", ErrModelMissing, path)
	}
	if !m.autoDownload {
		return "", fmt.Errorf("%w: %s (auto download disabled)", ErrModelMissing, info.ID)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}

	m.logger.Info("Downloading model",
		logger.String("model", info.ID),
		logger.String("url", info.URL),
		logger.String("approx_size", humanize.Bytes(uint64(info.Size))))

	var err error
	if info.IsZip {
		err = m.downloadAndUnzip(ctx, info, path)
	} else {
		err = m.downloadFile(ctx, info, path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to download model %s: %w", info.ID, err)
	}

	if !m.IsDownloaded(info) {
		return "", fmt.Errorf("%w: %s missing after download", ErrModelMissing, path)
	}
	return path, nil
}

// downloadFile fetches into a temp file next to dest and renames it into
// place once complete.
func (m *Manager) downloadFile(ctx context.Context, info ModelInfo, dest string) error {
	tmpPath := dest + ".tmp"
	defer os.Remove(tmpPath)

	file, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	if err := m.fetch(ctx, info, file); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, dest)
}

func (m *Manager) downloadAndUnzip(ctx context.Context, info ModelInfo, dest string) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), "model-*.zip")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := m.fetch(ctx, info, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := unzip(tmpPath, filepath.Dir(dest)); err != nil {
		return fmt.Errorf("failed to extract archive: %w", err)
	}
	return nil
}

func (m *Manager) fetch(ctx context.Context, info ModelInfo, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.URL, nil)
	if err != nil {
		return err
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected HTTP status: %s", resp.Status)
	}

	total := resp.ContentLength
	if total <= 0 {
		total = info.Size
	}

	pw := &progressWriter{
		total:   total,
		modelID: info.ID,
		logger:  m.logger,
	}
	if _, err := io.Copy(io.MultiWriter(w, pw), resp.Body); err != nil {
		return err
	}

	m.logger.Info("Download complete",
		logger.String("model", info.ID),
		logger.String("size", humanize.Bytes(uint64(pw.written))))
	return nil
}

// progressWriter logs every progressStep percent.
type progressWriter struct {
	total      int64
	written    int64
	lastLogged int64
	modelID    string
	logger     *logger.Logger
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	if p.total <= 0 {
		return len(b), nil
	}

	percent := p.written * 100 / p.total
	if percent >= p.lastLogged+progressStep && percent < 100 {
		p.lastLogged = percent - percent%progressStep
		p.logger.Info("Download progress",
			logger.String("model", p.modelID),
			logger.Int64("percent", p.lastLogged),
			logger.String("downloaded", humanize.Bytes(uint64(p.written))),
			logger.String("total", humanize.Bytes(uint64(p.total))))
	}
	return len(b), nil
}

func unzip(src, destDir string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer r.Close()

	root := filepath.Clean(destDir) + string(os.PathSeparator)
	for _, f := range r.File {
		fpath := filepath.Join(destDir, f.Name)
		if !strings.HasPrefix(fpath, root) {
			return fmt.Errorf("illegal path in archive: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(fpath, 0755); err != nil {
				return err
			}
			continue
		}

		if err := extractFile(f, fpath); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	_, err = io.Copy(out, rc)
	return err
}
