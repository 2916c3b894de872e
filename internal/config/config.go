package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"podcast-generator/internal/feed"
)

const (
	defaultListenAddr        = "127.0.0.1:8080"
	defaultRefreshDebounceMS = 500
	defaultWorkers           = 4
	defaultFeedTitle         = "Podcast"
	defaultFeedDescription   = "Podcast feed generated from a directory of audio files."
	defaultFeedLanguage      = "en"
	defaultGenerator         = "podcast-generator"
)

// LoadDotEnv loads variables from the given .env files (".env" when none are
// given). Missing files are ignored and variables already present in the
// environment are never overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		resolved, err := expandPath(path)
		if err != nil {
			return err
		}
		if _, err := os.Stat(resolved); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		if err := godotenv.Load(resolved); err != nil {
			return fmt.Errorf("load %s: %w", resolved, err)
		}
	}
	return nil
}

// ResolveAudioRoot returns the absolute directory that should be scanned for
// audio files. arg wins over PODCAST_AUDIO_DIR; without either the "audio"
// directory under the working directory is used. The directory is not
// created: a missing root is reported by the scanner.
func ResolveAudioRoot(arg string) (string, error) {
	dir := strings.TrimSpace(arg)
	if dir == "" {
		dir = strings.TrimSpace(os.Getenv("PODCAST_AUDIO_DIR"))
	}
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(cwd, "audio")
	}

	return expandPath(dir)
}

// ListenAddr returns the TCP address the HTTP server should bind to.
func ListenAddr() string {
	addr := strings.TrimSpace(os.Getenv("PODCAST_LISTEN_ADDR"))
	if addr == "" {
		return defaultListenAddr
	}
	return addr
}

// RefreshDebounce returns the duration to wait before regenerating the feed
// after file-system change events.
func RefreshDebounce() time.Duration {
	value := strings.TrimSpace(os.Getenv("PODCAST_REFRESH_DEBOUNCE_MS"))
	if value == "" {
		return time.Duration(defaultRefreshDebounceMS) * time.Millisecond
	}

	ms, err := strconv.Atoi(value)
	if err != nil || ms < 0 {
		return time.Duration(defaultRefreshDebounceMS) * time.Millisecond
	}
	return time.Duration(ms) * time.Millisecond
}

// Workers returns the number of concurrent metadata resolvers.
func Workers() int {
	value := strings.TrimSpace(os.Getenv("PODCAST_WORKERS"))
	if value == "" {
		return defaultWorkers
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return defaultWorkers
	}
	return n
}

// ValidateListenAddr ensures the configured listen address is restricted to localhost.
func ValidateListenAddr(addr string) error {
	addr = strings.TrimSpace(strings.ToLower(addr))
	if strings.HasPrefix(addr, "127.0.0.1:") || strings.HasPrefix(addr, "localhost:") || strings.HasPrefix(addr, "[::1]:") {
		return nil
	}
	return errors.New("listen address must bind to localhost for security")
}

// DefaultBaseURL returns the enclosure base URL used by the built-in HTTP
// server when none is configured.
func DefaultBaseURL(listenAddr string) string {
	return "http://" + strings.TrimSpace(listenAddr) + "/audio/"
}

// FeedMetadata represents the channel metadata used to render the feed.
type FeedMetadata struct {
	Title            string
	Description      string
	Link             string
	Language         string
	Generator        string
	Author           string
	EnclosureBaseURL string
	SelfURL          string
}

type feedMetadataYAML struct {
	Title            string `yaml:"title"`
	Description      string `yaml:"description"`
	Link             string `yaml:"link"`
	Language         string `yaml:"language"`
	Generator        string `yaml:"generator"`
	Author           string `yaml:"author"`
	EnclosureBaseURL string `yaml:"enclosure_base_url"`
	SelfURL          string `yaml:"self_url"`
}

// ResolveFeedMetadata returns the feed metadata after applying defaults, YAML
// configuration and environment variable overrides. configPath wins over
// PODCAST_FEED_CONFIG when both are set.
func ResolveFeedMetadata(configPath string) (FeedMetadata, error) {
	meta := FeedMetadata{
		Title:       defaultFeedTitle,
		Description: defaultFeedDescription,
		Language:    defaultFeedLanguage,
		Generator:   defaultGenerator,
	}

	if strings.TrimSpace(configPath) == "" {
		configPath = os.Getenv("PODCAST_FEED_CONFIG")
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		resolved, err := expandPath(configPath)
		if err != nil {
			return FeedMetadata{}, err
		}
		data, err := os.ReadFile(resolved)
		if err != nil {
			return FeedMetadata{}, err
		}
		var yamlConfig feedMetadataYAML
		if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
			return FeedMetadata{}, fmt.Errorf("parse %s: %w", resolved, err)
		}
		overlay(&meta.Title, yamlConfig.Title)
		overlay(&meta.Description, yamlConfig.Description)
		overlay(&meta.Link, yamlConfig.Link)
		overlay(&meta.Language, yamlConfig.Language)
		overlay(&meta.Generator, yamlConfig.Generator)
		overlay(&meta.Author, yamlConfig.Author)
		overlay(&meta.EnclosureBaseURL, yamlConfig.EnclosureBaseURL)
		overlay(&meta.SelfURL, yamlConfig.SelfURL)
	}

	overlay(&meta.Title, os.Getenv("PODCAST_FEED_TITLE"))
	overlay(&meta.Description, os.Getenv("PODCAST_FEED_DESCRIPTION"))
	overlay(&meta.Link, os.Getenv("PODCAST_FEED_LINK"))
	overlay(&meta.Language, os.Getenv("PODCAST_FEED_LANGUAGE"))
	overlay(&meta.Generator, os.Getenv("PODCAST_FEED_GENERATOR"))
	overlay(&meta.Author, os.Getenv("PODCAST_FEED_AUTHOR"))
	overlay(&meta.EnclosureBaseURL, os.Getenv("PODCAST_FEED_BASE_URL"))
	overlay(&meta.SelfURL, os.Getenv("PODCAST_FEED_SELF_URL"))

	return meta, nil
}

// Validate reports configuration errors that must be fixed before a feed can
// be generated.
func (m FeedMetadata) Validate() error {
	var errs []error
	if strings.TrimSpace(m.Title) == "" {
		errs = append(errs, errors.New("feed title is required"))
	}
	if _, err := parseAbsoluteURL(m.EnclosureBaseURL); err != nil {
		errs = append(errs, fmt.Errorf("enclosure base URL: %w", err))
	}
	if m.Link != "" {
		if _, err := parseAbsoluteURL(m.Link); err != nil {
			errs = append(errs, fmt.Errorf("feed link: %w", err))
		}
	}
	if m.SelfURL != "" {
		if _, err := parseAbsoluteURL(m.SelfURL); err != nil {
			errs = append(errs, fmt.Errorf("self URL: %w", err))
		}
	}
	if m.Language != "" {
		if _, err := language.Parse(m.Language); err != nil {
			errs = append(errs, fmt.Errorf("feed language %q: %w", m.Language, err))
		}
	}
	return errors.Join(errs...)
}

// ToFeed validates m and converts it into the assembler's metadata. The
// language code is canonicalized, e.g. "en-us" becomes "en-US".
func (m FeedMetadata) ToFeed() (feed.Metadata, error) {
	if err := m.Validate(); err != nil {
		return feed.Metadata{}, err
	}

	base, err := parseAbsoluteURL(m.EnclosureBaseURL)
	if err != nil {
		return feed.Metadata{}, err
	}

	lang := m.Language
	if lang != "" {
		tag, err := language.Parse(lang)
		if err != nil {
			return feed.Metadata{}, err
		}
		lang = tag.String()
	}

	return feed.Metadata{
		Title:            m.Title,
		Description:      m.Description,
		Link:             m.Link,
		Language:         lang,
		Generator:        m.Generator,
		Author:           m.Author,
		EnclosureBaseURL: base,
		SelfURL:          m.SelfURL,
	}, nil
}

func parseAbsoluteURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("must be set")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%q must be an absolute http or https URL", raw)
	}
	return u, nil
}

func overlay(dst *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[1:])
		}
	}

	return filepath.Abs(path)
}
