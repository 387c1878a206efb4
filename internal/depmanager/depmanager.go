// Package depmanager locates and installs the external binaries the engine
// relies on: yt-dlp and the ffmpeg/ffprobe encoder pair.
package depmanager

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"vidfetch/internal/config"
	"vidfetch/internal/errs"
	"vidfetch/internal/observability"

	"github.com/ulikunitz/xz"
)

// BinaryName represents the name of a binary dependency.
type BinaryName string

// Binary dependency names.
const (
	BinaryYTdlp   BinaryName = "yt-dlp"
	BinaryFFmpeg  BinaryName = "ffmpeg"
	BinaryFFprobe BinaryName = "ffprobe"
)

// Platform operating system names and architectures.
const (
	platformDarwin  = "darwin"
	platformLinux   = "linux"
	platformWindows = "windows"
	platformAndroid = "android"
	archARM64       = "arm64"
	archAMD64       = "amd64"
)

const (
	// downloadTimeout is the HTTP client timeout for downloading binaries.
	downloadTimeout = 10 * time.Minute
	// filePermExecutable is the file permission for executable binaries.
	filePermExecutable = 0o755
)

// Platform represents the OS and architecture combination.
type Platform struct {
	OS   string
	Arch string
}

// String returns the platform string in format "os/arch".
func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}

// Manager locates and installs binary dependencies.
type Manager struct {
	log      *slog.Logger
	cfg      *config.Config
	metrics  *observability.Metrics
	platform Platform
	client   *http.Client

	// workDir is the application's own fixed location, searched first.
	workDir  string
	lookPath func(string) (string, error)

	mu sync.Mutex
}

// New creates a new dependency manager. metrics may be nil.
func New(log *slog.Logger, cfg *config.Config, metrics *observability.Metrics) *Manager {
	workDir, err := os.Getwd()
	if err != nil {
		workDir = "."
	}

	return &Manager{
		log:      log.With(slog.String("package", "depmanager")),
		cfg:      cfg,
		metrics:  metrics,
		platform: Platform{OS: runtime.GOOS, Arch: runtime.GOARCH},
		client:   &http.Client{Timeout: downloadTimeout},
		workDir:  workDir,
		lookPath: exec.LookPath,
	}
}

// Start installs missing binaries when auto install is enabled. Failures are
// logged and never fatal: a missing encoder only disables transcoding.
func (m *Manager) Start(ctx context.Context) {
	log := m.log

	for _, binary := range []BinaryName{BinaryYTdlp, BinaryFFmpeg} {
		path, _, err := m.Locate(binary)
		if err == nil {
			log.DebugContext(ctx, "binary found", slog.String("binary", string(binary)), slog.String("path", path))

			continue
		}

		if !m.cfg.DepManager.AutoInstall {
			log.WarnContext(ctx, "binary not found", slog.String("binary", string(binary)))

			continue
		}

		if err := m.Install(ctx, binary); err != nil {
			log.ErrorContext(ctx, "failed to install binary",
				slog.String("binary", string(binary)),
				slog.Any("error", err))
		}
	}
}

// Locate finds a binary in the working directory, then the managed bins dir,
// then PATH. local reports whether the hit was one of the first two, which
// callers must pass to tools explicitly.
func (m *Manager) Locate(name BinaryName) (path string, local bool, err error) {
	filename := m.filename(name)

	for _, dir := range []string{m.workDir, m.cfg.DepManager.BinsDir} {
		if dir == "" {
			continue
		}

		candidate := filepath.Join(dir, filename)
		if isExecutableFile(candidate) {
			return candidate, true, nil
		}
	}

	path, err = m.lookPath(string(name))
	if err != nil {
		return "", false, fmt.Errorf("%w: %s: %w", errs.ErrBinaryNotFound, name, err)
	}

	return path, false, nil
}

// LocateEncoder finds ffmpeg.
func (m *Manager) LocateEncoder() (path string, local bool, err error) {
	path, local, err = m.Locate(BinaryFFmpeg)
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", errs.ErrEncoderNotFound, err)
	}

	return path, local, nil
}

// Executable returns the yt-dlp path, falling back to the bare name so the
// engine can still report a useful error.
func (m *Manager) Executable() string {
	path, _, err := m.Locate(BinaryYTdlp)
	if err != nil {
		return string(BinaryYTdlp)
	}

	return path
}

// GetBinaryPath returns the managed path of a binary inside the bins dir.
//   - /home/user/bins + ffmpeg => /home/user/bins/ffmpeg
func (m *Manager) GetBinaryPath(name BinaryName) string {
	return filepath.Join(m.cfg.DepManager.BinsDir, m.filename(name))
}

// Install downloads the configured archive or binary for the current
// platform into the bins dir.
func (m *Manager) Install(ctx context.Context, name BinaryName) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	defer func() {
		if m.metrics == nil {
			return
		}

		result := "ok"
		if err != nil {
			result = "error"
		}

		m.metrics.RecordInstall(string(name), result)
	}()

	log := m.log.With(slog.String("binary", string(name)))

	url := m.getBinaryURL(name)
	if url == "" {
		return fmt.Errorf("%w: %s on %s", errs.ErrUnsupportedPlatform, name, m.platform)
	}

	if err = os.MkdirAll(m.cfg.DepManager.BinsDir, filePermExecutable); err != nil {
		return fmt.Errorf("create bins directory: %w", err)
	}

	log.InfoContext(ctx, "downloading binary", slog.String("url", url))

	paths, err := m.downloadDependency(ctx, url, name)
	if err != nil {
		return fmt.Errorf("download dependency: %w", err)
	}

	for _, path := range paths {
		if err = os.Chmod(path, filePermExecutable); err != nil {
			return fmt.Errorf("chmod: %w", err)
		}
	}

	log.InfoContext(ctx, "binary installed successfully", slog.Any("paths", paths))

	return nil
}

func (m *Manager) filename(name BinaryName) string {
	if m.platform.OS == platformWindows {
		return string(name) + ".exe"
	}

	return string(name)
}

func (m *Manager) getBinaryURL(name BinaryName) string {
	cfg := m.cfg.DepManager

	switch name {
	case BinaryYTdlp:
		return m.selectURL(cfg.YTdlpLinuxARM64, cfg.YTdlpLinuxAMD64, cfg.YTdlpDarwin, cfg.YTdlpWindowsAMD64)
	case BinaryFFmpeg, BinaryFFprobe:
		return m.selectURL(cfg.FFmpegLinuxARM64, cfg.FFmpegLinuxAMD64, "", cfg.FFmpegWindowsAMD64)
	}

	return ""
}

// selectURL picks the URL for the current platform. Empty means unsupported.
func (m *Manager) selectURL(linuxARM64, linuxAMD64, darwin, windowsAMD64 string) string {
	switch {
	case m.platform.OS == platformDarwin:
		return darwin
	case m.platform.OS == platformWindows && m.platform.Arch == archAMD64:
		return windowsAMD64
	case (m.platform.OS == platformLinux || m.platform.OS == platformAndroid) && m.platform.Arch == archARM64:
		return linuxARM64
	case m.platform.OS == platformLinux && m.platform.Arch == archAMD64:
		return linuxAMD64
	}

	return ""
}

// downloadDependency downloads a binary or archive from url and installs the
// needed files into the bins dir. Returns installed paths.
func (m *Manager) downloadDependency(ctx context.Context, url string, name BinaryName) ([]string, error) {
	binPath := m.GetBinaryPath(name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	destDir := filepath.Dir(binPath)

	tmpFile, err := os.CreateTemp(destDir, "download-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	tmpPath := tmpFile.Name()

	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	if !isArchive(url) {
		if err := os.Rename(tmpPath, binPath); err != nil {
			return nil, fmt.Errorf("rename: %w", err)
		}

		return []string{binPath}, nil
	}

	targets := m.filesNeeded(name)

	extracted, err := m.extractFiles(tmpPath, destDir, url, targets)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	return extracted, nil
}

// filesNeeded returns the archive members to keep for a binary.
func (m *Manager) filesNeeded(name BinaryName) map[string]struct{} {
	files := make(map[string]struct{})

	switch name {
	case BinaryFFmpeg, BinaryFFprobe:
		files[m.filename(BinaryFFmpeg)] = struct{}{}
		files[m.filename(BinaryFFprobe)] = struct{}{}
	default:
		files[m.filename(name)] = struct{}{}
	}

	return files
}

func isArchive(url string) bool {
	return strings.HasSuffix(url, ".zip") || strings.HasSuffix(url, ".tar.xz") || strings.HasSuffix(url, ".tar.gz")
}

func (m *Manager) extractFiles(archivePath, destDir, url string, targets map[string]struct{}) ([]string, error) {
	switch {
	case strings.HasSuffix(url, ".zip"):
		return m.extractFromZip(archivePath, destDir, targets)
	case strings.HasSuffix(url, ".tar.xz"):
		return m.extractFromTarXZ(archivePath, destDir, targets)
	case strings.HasSuffix(url, ".tar.gz"):
		return m.extractFromTarGZ(archivePath, destDir, targets)
	default:
		return nil, errs.ErrUnsupportedArchive
	}
}

func (m *Manager) extractFromZip(zipPath, destDir string, targets map[string]struct{}) ([]string, error) {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer reader.Close()

	var extracted []string

	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}

		filename := file.FileInfo().Name()
		if _, ok := targets[filename]; !ok {
			continue
		}

		fileReader, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open file in zip: %w", err)
		}

		destPath := filepath.Join(destDir, filename)
		err = writeExecutable(destPath, fileReader)
		_ = fileReader.Close()

		if err != nil {
			return nil, err
		}

		extracted = append(extracted, destPath)

		if len(extracted) == len(targets) {
			break
		}
	}

	if len(extracted) == 0 {
		return nil, errors.New("no target files found in zip archive")
	}

	return extracted, nil
}

func (m *Manager) extractFromTarXZ(tarXZPath, destDir string, targets map[string]struct{}) ([]string, error) {
	file, err := os.Open(tarXZPath) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("open tar.xz: %w", err)
	}
	defer file.Close()

	xzReader, err := xz.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("create xz reader: %w", err)
	}

	return extractTarSelected(xzReader, destDir, targets)
}

func (m *Manager) extractFromTarGZ(tarGZPath, destDir string, targets map[string]struct{}) ([]string, error) {
	file, err := os.Open(tarGZPath) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("open tar.gz: %w", err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("create gzip reader: %w", err)
	}
	defer gzReader.Close()

	return extractTarSelected(gzReader, destDir, targets)
}

func extractTarSelected(reader io.Reader, destDir string, targets map[string]struct{}) ([]string, error) {
	tarReader := tar.NewReader(reader)

	var extracted []string

	for len(extracted) < len(targets) {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("read tar header: %w", err)
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}

		filename := filepath.Base(header.Name)
		if _, ok := targets[filename]; !ok {
			continue
		}

		destPath := filepath.Join(destDir, filename)
		if err := writeExecutable(destPath, tarReader); err != nil {
			return nil, err
		}

		extracted = append(extracted, destPath)
	}

	if len(extracted) == 0 {
		return nil, errors.New("no target files found in tar archive")
	}

	return extracted, nil
}

func writeExecutable(destPath string, r io.Reader) error {
	outFile, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermExecutable) //nolint:gosec
	if err != nil {
		return fmt.Errorf("create dest file: %w", err)
	}

	if _, err := io.Copy(outFile, r); err != nil { //nolint:gosec
		_ = outFile.Close()

		return fmt.Errorf("extract file: %w", err)
	}

	return outFile.Close()
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}
