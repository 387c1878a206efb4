// Package config handles application configuration loading and management.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration.
type Config struct {
	HTTP       HTTP
	App        App
	Dir        Dir
	Engine     Engine
	Thumbnail  Thumbnail
	DepManager DepManager
	Proxy      Proxy
}

// App holds application-wide configuration.
type App struct {
	LogLevel string `env:"VIDFETCH_APP_LOG_LEVEL" envDefault:"info"`
	// Engine selects the extraction engine: "ytdlp" or "mock".
	Engine string `env:"VIDFETCH_APP_ENGINE" envDefault:"ytdlp"`
}

// HTTP holds HTTP server configuration.
type HTTP struct {
	Port            string        `env:"VIDFETCH_HTTP_PORT"             envDefault:":8080"`
	HandlerTimeout  time.Duration `env:"VIDFETCH_HTTP_HANDLER_TIMEOUT"  envDefault:"20s"`
	ShutdownTimeout time.Duration `env:"VIDFETCH_HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Dir holds directory paths for downloads, cache, and cookie file.
type Dir struct {
	// Base is the download root. Empty means the platform default.
	Base  string `env:"VIDFETCH_DIR_BASE"  envDefault:""`
	Cache string `env:"VIDFETCH_DIR_CACHE" envDefault:"./data/cache"` // yt-dlp cache (meta, sigs)

	// see: https://github.com/yt-dlp/yt-dlp/wiki/FAQ#how-do-i-pass-cookies-to-yt-dlp
	CookieFile string `env:"VIDFETCH_DIR_COOKIE_FILE" envDefault:""`
}

// SetAbsPaths converts all directory paths to absolute paths.
func (c *Dir) SetAbsPaths() error {
	var err error
	if c.Base != "" {
		if c.Base, err = filepath.Abs(c.Base); err != nil {
			return fmt.Errorf("base: %w", err)
		}
	}

	if c.Cache, err = filepath.Abs(c.Cache); err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	if c.CookieFile != "" {
		if c.CookieFile, err = filepath.Abs(c.CookieFile); err != nil {
			return fmt.Errorf("cookie file: %w", err)
		}
	}

	return nil
}

// Engine holds extraction engine tuning.
type Engine struct {
	ProgressFreq        time.Duration `env:"VIDFETCH_ENGINE_PROGRESS_FREQ"        envDefault:"200ms"`
	ConcurrentFragments int           `env:"VIDFETCH_ENGINE_CONCURRENT_FRAGMENTS" envDefault:"8"`
	AudioQuality        string        `env:"VIDFETCH_ENGINE_AUDIO_QUALITY"        envDefault:"192"`
	// Binary overrides the yt-dlp executable. Empty means resolve through the dependency manager.
	Binary string `env:"VIDFETCH_ENGINE_BINARY" envDefault:""`
}

// Thumbnail holds thumbnail fetch configuration.
type Thumbnail struct {
	Timeout time.Duration `env:"VIDFETCH_THUMBNAIL_TIMEOUT" envDefault:"30s"`
}

// New loads configuration from environment variables.
func New() (*Config, error) {
	cfg := &Config{}

	err := env.Parse(cfg)
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	err = cfg.Dir.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set absolute paths: %w", err)
	}

	err = cfg.DepManager.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set dep manager absolute paths: %w", err)
	}

	cfg.Proxy.parseList()

	return cfg, nil
}

// DepManager holds binary dependency management configuration.
type DepManager struct {
	// BinsDir is the directory where managed binaries are stored.
	BinsDir string `env:"VIDFETCH_DEPMANAGER_BINS_DIR" envDefault:"./bins"`
	// AutoInstall downloads missing binaries on start.
	AutoInstall bool `env:"VIDFETCH_DEPMANAGER_AUTO_INSTALL" envDefault:"true"`

	// ffmpeg archive URLs per platform.
	FFmpegLinuxARM64   string `env:"VIDFETCH_DEPMANAGER_FFMPEG_LINUX_ARM64"   envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linuxarm64-gpl.tar.xz"` //nolint:lll
	FFmpegLinuxAMD64   string `env:"VIDFETCH_DEPMANAGER_FFMPEG_LINUX_AMD64"   envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linux64-gpl.tar.xz"`    //nolint:lll
	FFmpegWindowsAMD64 string `env:"VIDFETCH_DEPMANAGER_FFMPEG_WINDOWS_AMD64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-win64-gpl.zip"`        //nolint:lll

	// yt-dlp binary URLs per platform.
	YTdlpLinuxARM64   string `env:"VIDFETCH_DEPMANAGER_YTDLP_LINUX_ARM64"   envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux_aarch64"` //nolint:lll
	YTdlpLinuxAMD64   string `env:"VIDFETCH_DEPMANAGER_YTDLP_LINUX_AMD64"   envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux"`         //nolint:lll
	YTdlpDarwin       string `env:"VIDFETCH_DEPMANAGER_YTDLP_DARWIN"        envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_macos"`         //nolint:lll
	YTdlpWindowsAMD64 string `env:"VIDFETCH_DEPMANAGER_YTDLP_WINDOWS_AMD64" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp.exe"`           //nolint:lll
}

// SetAbsPaths converts the BinsDir path to an absolute path.
func (d *DepManager) SetAbsPaths() error {
	var err error
	if d.BinsDir, err = filepath.Abs(d.BinsDir); err != nil {
		return fmt.Errorf("bins dir: %w", err)
	}

	return nil
}

// Proxy holds proxy configuration for engine and thumbnail requests.
type Proxy struct {
	// List is a comma-separated list of proxy URLs in socks5h or http format.
	List string `env:"VIDFETCH_PROXY_LIST" envDefault:""`
	// HealthCheck dials a proxy before handing it out.
	HealthCheck   bool          `env:"VIDFETCH_PROXY_HEALTH_CHECK"   envDefault:"false"`
	HealthTimeout time.Duration `env:"VIDFETCH_PROXY_HEALTH_TIMEOUT" envDefault:"5s"`

	// Proxies is the parsed list of proxy URLs.
	Proxies []string `env:"-"`
}

// parseList parses the comma-separated proxy list.
func (p *Proxy) parseList() {
	p.Proxies = nil
	if p.List == "" {
		return
	}

	for proxy := range strings.SplitSeq(p.List, ",") {
		proxy = strings.TrimSpace(proxy)
		if proxy != "" {
			p.Proxies = append(p.Proxies, proxy)
		}
	}
}
