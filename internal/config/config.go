// Package config is the configuration surface for the retrieval core:
// scope, limits, politeness/retry, and the admission-filter knobs,
// assembled either programmatically via the With* builder or from a
// JSON or YAML file, following the teacher's default-then-override DTO pattern.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxDepthInfinite is the sentinel max_depth value meaning "never gate
// on depth", matching spec.md §6's "integer or infinite" max_depth.
const MaxDepthInfinite = -1

type Config struct {
	//===============
	//  Crawl scope
	//===============
	seedURLs     []string
	allowedHosts map[string]struct{}
	includes     []string
	excludes     []string

	//===============
	// Limits
	//===============
	maxDepth int
	quota    int64

	//===============
	// Admission policy
	//===============
	httpsOnly      bool
	followFTP      bool
	relativeOnly   bool
	spanHost       bool
	noParent       bool
	pageRequisites bool
	useRobots      bool
	spider         bool
	deleteAfter    bool

	acceptPatterns []string
	rejectPatterns []string
	acceptRegexes  []*regexp.Regexp
	rejectRegexes  []*regexp.Regexp
	acceptSuffixes []string
	rejectSuffixes []string

	rejectedLogPath string
	locale          string

	//===============
	// Politeness / retry
	//===============
	concurrency            int
	baseDelay              time.Duration
	jitter                 time.Duration
	randomSeed             int64
	maxAttempt             int
	backoffInitialDuration time.Duration
	backoffMultiplier      float64
	backoffMaxDuration     time.Duration

	//===============
	// Fetch
	//===============
	timeout   time.Duration
	userAgent string

	//===============
	// Output
	//===============
	outputDir string
	dryRun    bool
}

type configDTO struct {
	SeedURLs     []string `json:"seedUrls" yaml:"seedUrls"`
	AllowedHosts []string `json:"allowedHosts,omitempty" yaml:"allowedHosts,omitempty"`
	Includes     []string `json:"includes,omitempty" yaml:"includes,omitempty"`
	Excludes     []string `json:"excludes,omitempty" yaml:"excludes,omitempty"`

	MaxDepth *int  `json:"maxDepth,omitempty" yaml:"maxDepth,omitempty"`
	Quota    int64 `json:"quota,omitempty" yaml:"quota,omitempty"`

	HTTPSOnly      bool  `json:"httpsOnly,omitempty" yaml:"httpsOnly,omitempty"`
	FollowFTP      bool  `json:"followFtp,omitempty" yaml:"followFtp,omitempty"`
	RelativeOnly   bool  `json:"relativeOnly,omitempty" yaml:"relativeOnly,omitempty"`
	SpanHost       bool  `json:"spanHost,omitempty" yaml:"spanHost,omitempty"`
	NoParent       bool  `json:"noParent,omitempty" yaml:"noParent,omitempty"`
	PageRequisites bool  `json:"pageRequisites,omitempty" yaml:"pageRequisites,omitempty"`
	UseRobots      *bool `json:"useRobots,omitempty" yaml:"useRobots,omitempty"`
	Spider         bool  `json:"spider,omitempty" yaml:"spider,omitempty"`
	DeleteAfter    bool  `json:"deleteAfter,omitempty" yaml:"deleteAfter,omitempty"`

	AcceptPatterns []string `json:"accept,omitempty" yaml:"accept,omitempty"`
	RejectPatterns []string `json:"reject,omitempty" yaml:"reject,omitempty"`
	AcceptSuffixes []string `json:"acceptSuffixes,omitempty" yaml:"acceptSuffixes,omitempty"`
	RejectSuffixes []string `json:"rejectSuffixes,omitempty" yaml:"rejectSuffixes,omitempty"`

	RejectedLog string `json:"rejectedLog,omitempty" yaml:"rejectedLog,omitempty"`
	Locale      string `json:"locale,omitempty" yaml:"locale,omitempty"`

	Concurrency            int           `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	BaseDelay              time.Duration `json:"baseDelay,omitempty" yaml:"baseDelay,omitempty"`
	Jitter                 time.Duration `json:"jitter,omitempty" yaml:"jitter,omitempty"`
	RandomSeed             int64         `json:"randomSeed,omitempty" yaml:"randomSeed,omitempty"`
	MaxAttempt             int           `json:"maxAttempt,omitempty" yaml:"maxAttempt,omitempty"`
	BackoffInitialDuration time.Duration `json:"backoffInitialDuration,omitempty" yaml:"backoffInitialDuration,omitempty"`
	BackoffMultiplier      float64       `json:"backoffMultiplier,omitempty" yaml:"backoffMultiplier,omitempty"`
	BackoffMaxDuration     time.Duration `json:"backoffMaxDuration,omitempty" yaml:"backoffMaxDuration,omitempty"`

	Timeout   time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	UserAgent string        `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`

	OutputDir string `json:"outputDir,omitempty" yaml:"outputDir,omitempty"`
	DryRun    bool   `json:"dryRun,omitempty" yaml:"dryRun,omitempty"`
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	cfg, err := WithDefault(dto.SeedURLs).Build()
	if err != nil {
		return Config{}, err
	}

	if len(dto.AllowedHosts) > 0 {
		cfg.allowedHosts = toHostSet(dto.AllowedHosts)
	}
	cfg.includes = dto.Includes
	cfg.excludes = dto.Excludes

	if dto.MaxDepth != nil {
		cfg.maxDepth = *dto.MaxDepth
	}
	if dto.Quota != 0 {
		cfg.quota = dto.Quota
	}

	cfg.httpsOnly = dto.HTTPSOnly
	cfg.followFTP = dto.FollowFTP
	cfg.relativeOnly = dto.RelativeOnly
	cfg.spanHost = dto.SpanHost
	cfg.noParent = dto.NoParent
	cfg.pageRequisites = dto.PageRequisites
	if dto.UseRobots != nil {
		cfg.useRobots = *dto.UseRobots
	}
	cfg.spider = dto.Spider
	cfg.deleteAfter = dto.DeleteAfter

	if len(dto.AcceptPatterns) > 0 {
		regexes, err := compilePatterns(dto.AcceptPatterns)
		if err != nil {
			return Config{}, err
		}
		cfg.acceptPatterns = dto.AcceptPatterns
		cfg.acceptRegexes = regexes
	}
	if len(dto.RejectPatterns) > 0 {
		regexes, err := compilePatterns(dto.RejectPatterns)
		if err != nil {
			return Config{}, err
		}
		cfg.rejectPatterns = dto.RejectPatterns
		cfg.rejectRegexes = regexes
	}
	if len(dto.AcceptSuffixes) > 0 {
		cfg.acceptSuffixes = dto.AcceptSuffixes
	}
	if len(dto.RejectSuffixes) > 0 {
		cfg.rejectSuffixes = dto.RejectSuffixes
	}

	if dto.RejectedLog != "" {
		cfg.rejectedLogPath = dto.RejectedLog
	}
	if dto.Locale != "" {
		cfg.locale = dto.Locale
	}

	if dto.Concurrency != 0 {
		cfg.concurrency = dto.Concurrency
	}
	if dto.BaseDelay != 0 {
		cfg.baseDelay = dto.BaseDelay
	}
	if dto.Jitter != 0 {
		cfg.jitter = dto.Jitter
	}
	if dto.RandomSeed != 0 {
		cfg.randomSeed = dto.RandomSeed
	}
	if dto.MaxAttempt != 0 {
		cfg.maxAttempt = dto.MaxAttempt
	}
	if dto.BackoffInitialDuration != 0 {
		cfg.backoffInitialDuration = dto.BackoffInitialDuration
	}
	if dto.BackoffMultiplier != 0 {
		cfg.backoffMultiplier = dto.BackoffMultiplier
	}
	if dto.BackoffMaxDuration != 0 {
		cfg.backoffMaxDuration = dto.BackoffMaxDuration
	}

	if dto.Timeout != 0 {
		cfg.timeout = dto.Timeout
	}
	if dto.UserAgent != "" {
		cfg.userAgent = dto.UserAgent
	}
	if dto.OutputDir != "" {
		cfg.outputDir = dto.OutputDir
	}
	cfg.dryRun = dto.DryRun

	return cfg, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	regexes := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %s", ErrInvalidRegex, p, err.Error())
		}
		regexes = append(regexes, re)
	}
	return regexes, nil
}

func toHostSet(hosts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		set[strings.ToLower(h)] = struct{}{}
	}
	return set
}

// WithConfigFile loads a Config from a JSON or YAML file, chosen by
// the file's extension (.yaml/.yml use YAML, everything else JSON).
func WithConfigFile(path string) (Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	cfgDTO := configDTO{}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(configContent, &cfgDTO); err != nil {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
		}
	default:
		if err := json.Unmarshal(configContent, &cfgDTO); err != nil {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
		}
	}

	return newConfigFromDTO(cfgDTO)
}

// WithDefault creates a new Config with the provided seed URLs and
// default values for everything else. seedUrls must be non-empty for
// Build to succeed.
func WithDefault(seedUrls []string) *Config {
	return &Config{
		seedURLs:               seedUrls,
		allowedHosts:           map[string]struct{}{},
		maxDepth:               5,
		quota:                  0,
		httpsOnly:              false,
		followFTP:              false,
		relativeOnly:           false,
		spanHost:               false,
		noParent:               false,
		pageRequisites:         false,
		useRobots:              true,
		spider:                 false,
		deleteAfter:            false,
		rejectedLogPath:        "",
		locale:                 "en_US",
		concurrency:            1,
		baseDelay:              0,
		jitter:                 500 * time.Millisecond,
		randomSeed:             1,
		maxAttempt:             3,
		backoffInitialDuration: 200 * time.Millisecond,
		backoffMultiplier:      2.0,
		backoffMaxDuration:     10 * time.Second,
		timeout:                30 * time.Second,
		userAgent:              "retrieve-core/1.0",
		outputDir:              "output",
		dryRun:                 false,
	}
}

func (c *Config) WithSeedUrls(urls []string) *Config {
	c.seedURLs = urls
	return c
}

func (c *Config) WithAllowedHosts(hosts []string) *Config {
	c.allowedHosts = toHostSet(hosts)
	return c
}

func (c *Config) WithIncludes(dirs []string) *Config {
	c.includes = dirs
	return c
}

func (c *Config) WithExcludes(dirs []string) *Config {
	c.excludes = dirs
	return c
}

func (c *Config) WithMaxDepth(depth int) *Config {
	c.maxDepth = depth
	return c
}

func (c *Config) WithQuota(bytes int64) *Config {
	c.quota = bytes
	return c
}

func (c *Config) WithHTTPSOnly(v bool) *Config      { c.httpsOnly = v; return c }
func (c *Config) WithFollowFTP(v bool) *Config      { c.followFTP = v; return c }
func (c *Config) WithRelativeOnly(v bool) *Config   { c.relativeOnly = v; return c }
func (c *Config) WithSpanHost(v bool) *Config       { c.spanHost = v; return c }
func (c *Config) WithNoParent(v bool) *Config       { c.noParent = v; return c }
func (c *Config) WithPageRequisites(v bool) *Config { c.pageRequisites = v; return c }
func (c *Config) WithUseRobots(v bool) *Config      { c.useRobots = v; return c }
func (c *Config) WithSpider(v bool) *Config         { c.spider = v; return c }
func (c *Config) WithDeleteAfter(v bool) *Config    { c.deleteAfter = v; return c }

func (c *Config) WithAccept(patterns []string) (*Config, error) {
	regexes, err := compilePatterns(patterns)
	if err != nil {
		return c, err
	}
	c.acceptPatterns = patterns
	c.acceptRegexes = regexes
	return c, nil
}

func (c *Config) WithReject(patterns []string) (*Config, error) {
	regexes, err := compilePatterns(patterns)
	if err != nil {
		return c, err
	}
	c.rejectPatterns = patterns
	c.rejectRegexes = regexes
	return c, nil
}

func (c *Config) WithAcceptSuffixes(suffixes []string) *Config {
	c.acceptSuffixes = suffixes
	return c
}

func (c *Config) WithRejectSuffixes(suffixes []string) *Config {
	c.rejectSuffixes = suffixes
	return c
}

func (c *Config) WithRejectedLogPath(path string) *Config {
	c.rejectedLogPath = path
	return c
}

func (c *Config) WithLocale(locale string) *Config {
	c.locale = locale
	return c
}

func (c *Config) WithConcurrency(n int) *Config {
	c.concurrency = n
	return c
}

func (c *Config) WithBaseDelay(d time.Duration) *Config {
	c.baseDelay = d
	return c
}

func (c *Config) WithJitter(d time.Duration) *Config {
	c.jitter = d
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithMaxAttempt(n int) *Config {
	c.maxAttempt = n
	return c
}

func (c *Config) WithBackoffInitialDuration(d time.Duration) *Config {
	c.backoffInitialDuration = d
	return c
}

func (c *Config) WithBackoffMultiplier(m float64) *Config {
	c.backoffMultiplier = m
	return c
}

func (c *Config) WithBackoffMaxDuration(d time.Duration) *Config {
	c.backoffMaxDuration = d
	return c
}

func (c *Config) WithTimeout(d time.Duration) *Config {
	c.timeout = d
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithOutputDir(dir string) *Config {
	c.outputDir = dir
	return c
}

func (c *Config) WithDryRun(v bool) *Config {
	c.dryRun = v
	return c
}

func (c *Config) Build() (Config, error) {
	if len(c.seedURLs) == 0 {
		return Config{}, fmt.Errorf("%w: seedUrls cannot be empty", ErrInvalidConfig)
	}
	return *c, nil
}

//===============
// admission.Config
//===============

func (c Config) HTTPSOnly() bool      { return c.httpsOnly }
func (c Config) FollowFTP() bool      { return c.followFTP }
func (c Config) RelativeOnly() bool   { return c.relativeOnly }
func (c Config) SpanHost() bool       { return c.spanHost }
func (c Config) NoParent() bool       { return c.noParent }
func (c Config) PageRequisites() bool { return c.pageRequisites }
func (c Config) UseRobots() bool      { return c.useRobots }
func (c Config) MaxDepthFinite() bool { return c.maxDepth != MaxDepthInfinite }
func (c Config) MaxDepth() int        { return c.maxDepth }

func (c Config) AllowsHost(host string) bool {
	if len(c.allowedHosts) == 0 {
		return true
	}
	_, ok := c.allowedHosts[strings.ToLower(host)]
	return ok
}

func (c Config) Includes() []string {
	out := make([]string, len(c.includes))
	copy(out, c.includes)
	return out
}

func (c Config) Excludes() []string {
	out := make([]string, len(c.excludes))
	copy(out, c.excludes)
	return out
}

func (c Config) AcceptsURL(rawURL string) bool {
	if len(c.acceptRegexes) == 0 {
		return true
	}
	for _, re := range c.acceptRegexes {
		if re.MatchString(rawURL) {
			return true
		}
	}
	return false
}

func (c Config) RejectsURL(rawURL string) bool {
	for _, re := range c.rejectRegexes {
		if re.MatchString(rawURL) {
			return true
		}
	}
	return false
}

func (c Config) AcceptsFilename(file string) bool {
	if len(c.acceptSuffixes) == 0 {
		return true
	}
	lower := strings.ToLower(file)
	for _, suffix := range c.acceptSuffixes {
		if strings.HasSuffix(lower, strings.ToLower(suffix)) {
			return true
		}
	}
	return false
}

func (c Config) RejectsFilename(file string) bool {
	lower := strings.ToLower(file)
	for _, suffix := range c.rejectSuffixes {
		if strings.HasSuffix(lower, strings.ToLower(suffix)) {
			return true
		}
	}
	return false
}

//===============
// traversal.Config
//===============

func (c Config) Quota() int64          { return c.quota }
func (c Config) Spider() bool          { return c.spider }
func (c Config) DeleteAfter() bool     { return c.deleteAfter }
func (c Config) RejectedLogPath() string { return c.rejectedLogPath }

//===============
// Ambient accessors
//===============

func (c Config) SeedURLs() []string {
	out := make([]string, len(c.seedURLs))
	copy(out, c.seedURLs)
	return out
}

func (c Config) Locale() string { return c.locale }

func (c Config) Concurrency() int { return c.concurrency }

func (c Config) BaseDelay() time.Duration { return c.baseDelay }

func (c Config) Jitter() time.Duration { return c.jitter }

func (c Config) RandomSeed() int64 { return c.randomSeed }

func (c Config) MaxAttempt() int { return c.maxAttempt }

func (c Config) BackoffInitialDuration() time.Duration { return c.backoffInitialDuration }

func (c Config) BackoffMultiplier() float64 { return c.backoffMultiplier }

func (c Config) BackoffMaxDuration() time.Duration { return c.backoffMaxDuration }

func (c Config) Timeout() time.Duration { return c.timeout }

func (c Config) UserAgent() string { return c.userAgent }

func (c Config) OutputDir() string { return c.outputDir }

func (c Config) DryRun() bool { return c.dryRun }
