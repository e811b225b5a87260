package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	LayoutSeparate = "separate"
	LayoutCombined = "combined"
	LayoutJSON     = "json"
	LayoutEPUB     = "epub"
)

var (
	ErrConflictingLayout = errors.New("--combined, --json and --epub are mutually exclusive")
	ErrUnknownLayout     = errors.New("unknown layout")
)

// ConfigError reports a configuration that cannot be run. It is always
// returned before any session is opened or any request is made.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration (%s): %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Site describes where things live on the story site's chapter pages.
type Site struct {
	TitleSelector         string   `yaml:"title_selector"`
	TitleFallbackSelector string   `yaml:"title_fallback_selector"`
	TitleSuffix           string   `yaml:"title_suffix"`
	ContentSelector       string   `yaml:"content_selector"`
	ParentLinkText        string   `yaml:"parent_link_text"`
	ProfilePattern        string   `yaml:"profile_pattern"`
	Placeholders          []string `yaml:"placeholders"`
}

type Config struct {
	Output        string `yaml:"output"`
	Layout        string `yaml:"layout"`
	EmbedImages   bool   `yaml:"embed_images"`
	ConvertImages bool   `yaml:"convert_images"`
	ImageFormat   string `yaml:"image_format"`
	ImageQuality  int    `yaml:"image_quality"`
	Preview       bool   `yaml:"preview"`
	MaxDepth      int    `yaml:"max_depth"`
	Debug         bool   `yaml:"debug"`

	DefaultURL string `yaml:"default_url"`

	Cookie     string        `yaml:"cookie"`
	CookieFile string        `yaml:"cookie_file"`
	UserAgent  string        `yaml:"user_agent"`
	Timeout    time.Duration `yaml:"timeout"`
	DelayMin   time.Duration `yaml:"delay_min"`
	DelayMax   time.Duration `yaml:"delay_max"`
	SessionTTL time.Duration `yaml:"session_ttl"`

	Site Site `yaml:"site"`
}

// Options carries command line values. Zero values mean "not given".
type Options struct {
	IgnoreConfig  bool
	Debug         bool
	Output        string
	Combined      bool
	JSON          bool
	EPUB          bool
	EmbedImages   bool
	ConvertImages bool
	ImageFormat   string
	ImageQuality  int
	Preview       bool
	MaxDepth      int
	DefaultURL    string
	Cookie        string
	CookieFile    string
	UserAgent     string
}

func DefaultSite() Site {
	return Site{
		TitleSelector:         "header.chapter-header h1",
		TitleFallbackSelector: "h1.chapter-title",
		TitleSuffix:           " | Chapter",
		ContentSelector:       "div.chapter-content",
		ParentLinkText:        "Previous Chapter",
		ProfilePattern:        `/user/[^/?#]+`,
		Placeholders:          []string{"default.jpg", "/avatars/", "gravatar.com"},
	}
}

func DefaultConfig() *Config {
	return &Config{
		Output:        ".",
		Layout:        LayoutSeparate,
		EmbedImages:   false,
		ConvertImages: false,
		ImageFormat:   "jpg",
		ImageQuality:  85,
		Timeout:       30 * time.Second,
		DelayMin:      500 * time.Millisecond,
		DelayMax:      1500 * time.Millisecond,
		SessionTTL:    7 * 24 * time.Hour,
		Site:          DefaultSite(),
	}
}

func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func loadYAML(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// start from defaults so a partial profile keeps sane values
	c := DefaultConfig()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}

	return c, nil
}

// LoadMerged reads the active profile (unless ignored), applies command line
// overrides and validates the result. The returned string describes where
// the configuration came from.
func LoadMerged(opts Options) (*Config, string, error) {
	var (
		cfg    *Config
		source string
	)

	var (
		activePath string
		err        error
	)
	if !opts.IgnoreConfig {
		activePath, err = ActiveConfigPath()
	}

	switch {
	case opts.IgnoreConfig:
		cfg, source = DefaultConfig(), "(ignored config)"
	case errors.Is(err, ErrNoConfig) || (err == nil && activePath == ""):
		cfg, source = DefaultConfig(), "(default config in memory)\nRun `branchd config init` to create an actual config\n"
	case err != nil:
		return nil, "", err
	default:
		cfg, err = loadYAML(activePath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config %s: %w", activePath, err)
		}
		source = activePath
	}

	if err := mergeConfig(cfg, opts); err != nil {
		return nil, "", err
	}
	normalizeDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return cfg, source, nil
}

func layoutFromFlags(o Options) (string, error) {
	var picked []string
	if o.Combined {
		picked = append(picked, LayoutCombined)
	}
	if o.JSON {
		picked = append(picked, LayoutJSON)
	}
	if o.EPUB {
		picked = append(picked, LayoutEPUB)
	}

	switch len(picked) {
	case 0:
		return "", nil
	case 1:
		return picked[0], nil
	default:
		return "", &ConfigError{Field: "layout", Err: ErrConflictingLayout}
	}
}

func mergeConfig(c *Config, o Options) error {
	layout, err := layoutFromFlags(o)
	if err != nil {
		return err
	}
	if layout != "" {
		c.Layout = layout
	}

	if o.Output != "" {
		c.Output = o.Output
	}
	if o.EmbedImages {
		c.EmbedImages = true
	}
	if o.ConvertImages {
		c.ConvertImages = true
	}
	if o.ImageFormat != "" {
		c.ImageFormat = o.ImageFormat
	}
	if o.ImageQuality != 0 {
		c.ImageQuality = o.ImageQuality
	}
	if o.Preview {
		c.Preview = true
	}
	if o.MaxDepth != 0 {
		c.MaxDepth = o.MaxDepth
	}
	if o.Debug {
		c.Debug = true
	}
	if o.DefaultURL != "" {
		c.DefaultURL = o.DefaultURL
	}
	if o.Cookie != "" {
		c.Cookie = o.Cookie
	}
	if o.CookieFile != "" {
		c.CookieFile = o.CookieFile
	}
	if o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}

	return nil
}

func normalizeDefaults(c *Config) {
	def := DefaultConfig()

	if c.Output == "" {
		c.Output = def.Output
	}
	if c.Layout == "" {
		c.Layout = def.Layout
	}
	c.Layout = strings.ToLower(strings.TrimSpace(c.Layout))

	c.ImageFormat = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(c.ImageFormat)), ".")
	if c.ImageFormat == "" || c.ImageFormat == "jpeg" {
		c.ImageFormat = "jpg"
	}
	if c.ImageQuality == 0 {
		c.ImageQuality = def.ImageQuality
	}
	if c.Timeout == 0 {
		c.Timeout = def.Timeout
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = def.SessionTTL
	}

	s := &c.Site
	if s.TitleSelector == "" {
		s.TitleSelector = def.Site.TitleSelector
	}
	if s.ContentSelector == "" {
		s.ContentSelector = def.Site.ContentSelector
	}
	if s.ParentLinkText == "" {
		s.ParentLinkText = def.Site.ParentLinkText
	}
	if s.ProfilePattern == "" {
		s.ProfilePattern = def.Site.ProfilePattern
	}
}

// Validate checks values that cannot be fixed by defaults.
func (c *Config) Validate() error {
	switch c.Layout {
	case LayoutSeparate, LayoutCombined, LayoutJSON, LayoutEPUB:
	default:
		return &ConfigError{Field: "layout", Err: fmt.Errorf("%w %q", ErrUnknownLayout, c.Layout)}
	}

	if c.ImageFormat != "jpg" && c.ImageFormat != "png" {
		return &ConfigError{Field: "image_format", Err: fmt.Errorf("unsupported target format %q (jpg or png)", c.ImageFormat)}
	}
	if c.ImageQuality < 1 || c.ImageQuality > 100 {
		return &ConfigError{Field: "image_quality", Err: fmt.Errorf("%d is outside 1..100", c.ImageQuality)}
	}
	if c.DelayMin < 0 || c.DelayMax < c.DelayMin {
		return &ConfigError{Field: "delay", Err: fmt.Errorf("delay range %s..%s is invalid", c.DelayMin, c.DelayMax)}
	}
	if c.MaxDepth < 0 {
		return &ConfigError{Field: "max_depth", Err: fmt.Errorf("%d is negative", c.MaxDepth)}
	}

	return nil
}

func (c *Config) Print() {
	fmt.Printf(" -output: %s\n", c.Output)
	fmt.Printf(" -layout: %s\n", c.Layout)
	if c.EmbedImages {
		fmt.Printf(" -embed_images: %t\n", c.EmbedImages)
	}
	if c.ConvertImages {
		fmt.Printf(" -convert_images: %t (%s, q=%d)\n", c.ConvertImages, c.ImageFormat, c.ImageQuality)
	}
	if c.Preview {
		fmt.Printf(" -preview: %t\n", c.Preview)
	}
	if c.MaxDepth > 0 {
		fmt.Printf(" -max_depth: %d\n", c.MaxDepth)
	}
	if c.Debug {
		fmt.Printf(" -debug: %t\n", c.Debug)
	}
	if c.DefaultURL != "" {
		fmt.Printf(" -url: %s\n", c.DefaultURL)
	}
	if c.CookieFile != "" {
		fmt.Printf(" -cookie_file: %s\n", c.CookieFile)
	}
	fmt.Printf(" -timeout: %s\n", c.Timeout)
	fmt.Printf(" -delay: %s..%s\n", c.DelayMin, c.DelayMax)
	fmt.Printf(" -content_selector: %s\n", c.Site.ContentSelector)
	if len(c.Site.Placeholders) > 0 {
		fmt.Printf(" -placeholders: %s\n", strings.Join(c.Site.Placeholders, ", "))
	}
}
