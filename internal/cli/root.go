package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomashaas/retrieve-core/internal/build"
	"github.com/tomashaas/retrieve-core/internal/config"
)

var (
	cfgFile        string
	seedURLs       []string
	allowedHosts   []string
	includes       []string
	excludes       []string
	accept         []string
	reject         []string
	acceptSuffixes []string
	rejectSuffixes []string

	maxDepth int
	quota    int64

	httpsOnly      bool
	followFTP      bool
	relativeOnly   bool
	spanHost       bool
	noParent       bool
	pageRequisites bool
	useRobots      bool
	spider         bool
	deleteAfter    bool

	rejectedLog string
	locale      string

	concurrency int
	outputDir   string
	dryRun      bool
	userAgent   string
	timeout     time.Duration
	baseDelay   time.Duration
	jitter      time.Duration
	randomSeed  int64
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "retrieve-core",
	Short:   "A recursive, robots-aware website mirroring tool.",
	Version: build.FullVersion(),
	Long: `retrieve-core recursively retrieves a website, following links
breadth-first within the bounds of an admission filter (scope, depth,
host, include/exclude rules, robots.txt), writing a local mirror and a
rejection audit log for everything it declines to fetch.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(seedURLs) == 0 {
			fmt.Fprintf(os.Stderr, "Error: --seed-url is required. Please provide at least one seed URL to start.\n")
			cmd.Usage()
			os.Exit(1)
		}

		cfg := InitConfig(seedURLs)

		fmt.Printf("Configuration initialized successfully\n")
		fmt.Printf("Seed URLs: %s\n", strings.Join(cfg.SeedURLs(), ", "))
		fmt.Printf("Max Depth: %d\n", cfg.MaxDepth())
		fmt.Printf("Span Host: %t\n", cfg.SpanHost())
		fmt.Printf("No Parent: %t\n", cfg.NoParent())
		fmt.Printf("Page Requisites: %t\n", cfg.PageRequisites())
		fmt.Printf("Use Robots: %t\n", cfg.UseRobots())
		fmt.Printf("Concurrency: %d\n", cfg.Concurrency())
		fmt.Printf("Timeout: %v\n", cfg.Timeout())
		fmt.Printf("User Agent: %s\n", cfg.UserAgent())
		fmt.Printf("Output Directory: %s\n", cfg.OutputDir())
		fmt.Printf("Dry Run: %t\n", cfg.DryRun())

		if runner != nil {
			if err := runner(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
		}
	},
}

// runner is set by main() to perform the actual retrieval once a Config
// has been built. Kept out of this package so cli never imports the
// traversal/fetcher/robots stack it only configures.
var runner func(config.Config) error

// SetRunner registers the function invoked with the built Config when
// the root command runs.
func SetRunner(fn func(config.Config) error) {
	runner = fn
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path (.json or .yaml)")
	rootCmd.PersistentFlags().StringArrayVar(&seedURLs, "seed-url", []string{}, "one or more starting URLs (can be repeated)")
	rootCmd.PersistentFlags().StringArrayVar(&allowedHosts, "allowed-host", []string{}, "hostname allowlist (empty allows every host; see --span-host)")
	rootCmd.PersistentFlags().StringArrayVar(&includes, "include", []string{}, "restrict crawl to these directory prefixes")
	rootCmd.PersistentFlags().StringArrayVar(&excludes, "exclude", []string{}, "exclude these directory prefixes from the crawl")
	rootCmd.PersistentFlags().StringArrayVar(&accept, "accept", []string{}, "regex a URL must match to be fetched (can be repeated)")
	rootCmd.PersistentFlags().StringArrayVar(&reject, "reject", []string{}, "regex that rejects a URL outright (can be repeated)")
	rootCmd.PersistentFlags().StringArrayVar(&acceptSuffixes, "accept-suffix", []string{}, "filename suffix a URL must match to be fetched")
	rootCmd.PersistentFlags().StringArrayVar(&rejectSuffixes, "reject-suffix", []string{}, "filename suffix that rejects a URL outright")

	rootCmd.PersistentFlags().IntVar(&maxDepth, "max-depth", 0, "maximum link depth from seed URL (0 uses the default)")
	rootCmd.PersistentFlags().Int64Var(&quota, "quota", 0, "stop after downloading this many bytes (0 for unlimited)")

	rootCmd.PersistentFlags().BoolVar(&httpsOnly, "https-only", false, "never descend into plain HTTP links")
	rootCmd.PersistentFlags().BoolVar(&followFTP, "follow-ftp", false, "follow FTP links encountered in HTML pages")
	rootCmd.PersistentFlags().BoolVar(&relativeOnly, "relative-only", false, "only follow relative links")
	rootCmd.PersistentFlags().BoolVar(&spanHost, "span-host", false, "allow traversal to cross into other hosts")
	rootCmd.PersistentFlags().BoolVar(&noParent, "no-parent", false, "never ascend to the parent directory of the seed")
	rootCmd.PersistentFlags().BoolVar(&pageRequisites, "page-requisites", false, "fetch images/stylesheets/scripts needed to render a page")
	rootCmd.PersistentFlags().BoolVar(&useRobots, "use-robots", true, "honor robots.txt")
	rootCmd.PersistentFlags().BoolVar(&spider, "spider", false, "check that pages exist without saving them")
	rootCmd.PersistentFlags().BoolVar(&deleteAfter, "delete-after", false, "delete each downloaded file as soon as it has been processed")

	rootCmd.PersistentFlags().StringVar(&rejectedLog, "rejected-log", "", "path to write the rejection audit log")
	rootCmd.PersistentFlags().StringVar(&locale, "locale", "", "locale label, recorded for diagnostics only (not used for filename/path normalization)")

	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 0, "concurrency value, recorded and printed only; fetching is sequential")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output-dir", "output", "root output directory for the mirror")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "dry-run flag, recorded and printed only; fetching and writing are unchanged")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "user agent string for HTTP requests")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "timeout for HTTP requests")
	rootCmd.PersistentFlags().DurationVar(&baseDelay, "base-delay", 0, "base delay between requests to the same host")
	rootCmd.PersistentFlags().DurationVar(&jitter, "jitter", 0, "random jitter added to base delay")
	rootCmd.PersistentFlags().Int64Var(&randomSeed, "random-seed", 0, "seed for random jitter (0 uses the default)")
}

// InitConfig builds a Config from a config file or CLI flags, exiting the
// process on error. seedUrls must contain at least one valid URL.
func InitConfig(seedUrls []string) config.Config {
	cfg, err := InitConfigWithError(seedUrls)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}
	return cfg
}

// InitConfigWithError builds a Config from a config file or CLI flags,
// returning any error instead of exiting. This makes it easier to test
// error cases.
func InitConfigWithError(seedUrls []string) (config.Config, error) {
	if len(seedUrls) == 0 {
		return config.Config{}, fmt.Errorf("%w: seedUrls cannot be empty", config.ErrInvalidConfig)
	}

	if cfgFile != "" {
		fmt.Printf("Initializing config from file: %s\n", cfgFile)
		cfg, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return cfg, fmt.Errorf("error initializing config from file: %w", err)
		}
		return cfg, nil
	}

	fmt.Println("No config file specified. Using default flag values.")

	builder := config.WithDefault(seedUrls)

	if maxDepth > 0 {
		builder = builder.WithMaxDepth(maxDepth)
	}
	if quota > 0 {
		builder = builder.WithQuota(quota)
	}

	builder = builder.
		WithHTTPSOnly(httpsOnly).
		WithFollowFTP(followFTP).
		WithRelativeOnly(relativeOnly).
		WithSpanHost(spanHost).
		WithNoParent(noParent).
		WithPageRequisites(pageRequisites).
		WithUseRobots(useRobots).
		WithSpider(spider).
		WithDeleteAfter(deleteAfter)

	if len(allowedHosts) > 0 {
		builder = builder.WithAllowedHosts(allowedHosts)
	}
	if len(includes) > 0 {
		builder = builder.WithIncludes(includes)
	}
	if len(excludes) > 0 {
		builder = builder.WithExcludes(excludes)
	}
	if len(accept) > 0 {
		var err error
		builder, err = builder.WithAccept(accept)
		if err != nil {
			return config.Config{}, err
		}
	}
	if len(reject) > 0 {
		var err error
		builder, err = builder.WithReject(reject)
		if err != nil {
			return config.Config{}, err
		}
	}
	if len(acceptSuffixes) > 0 {
		builder = builder.WithAcceptSuffixes(acceptSuffixes)
	}
	if len(rejectSuffixes) > 0 {
		builder = builder.WithRejectSuffixes(rejectSuffixes)
	}
	if rejectedLog != "" {
		builder = builder.WithRejectedLogPath(rejectedLog)
	}
	if locale != "" {
		builder = builder.WithLocale(locale)
	}

	if concurrency > 0 {
		builder = builder.WithConcurrency(concurrency)
	}
	if outputDir != "" && outputDir != "output" {
		builder = builder.WithOutputDir(outputDir)
	}
	if dryRun {
		builder = builder.WithDryRun(dryRun)
	}
	if userAgent != "" {
		builder = builder.WithUserAgent(userAgent)
	}
	if timeout > 0 {
		builder = builder.WithTimeout(timeout)
	}
	if baseDelay > 0 {
		builder = builder.WithBaseDelay(baseDelay)
	}
	if jitter > 0 {
		builder = builder.WithJitter(jitter)
	}
	if randomSeed != 0 {
		builder = builder.WithRandomSeed(randomSeed)
	}

	cfg, err := builder.Build()
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func ResetFlags() {
	cfgFile = ""
	seedURLs = []string{}
	allowedHosts = []string{}
	includes = []string{}
	excludes = []string{}
	accept = []string{}
	reject = []string{}
	acceptSuffixes = []string{}
	rejectSuffixes = []string{}

	maxDepth = 0
	quota = 0

	httpsOnly = false
	followFTP = false
	relativeOnly = false
	spanHost = false
	noParent = false
	pageRequisites = false
	useRobots = true
	spider = false
	deleteAfter = false

	rejectedLog = ""
	locale = ""

	concurrency = 0
	outputDir = ""
	dryRun = false
	userAgent = ""
	timeout = 0
	baseDelay = 0
	jitter = 0
	randomSeed = 0
}

// Test helper functions to set flag values from tests.

func SetConfigFileForTest(path string)        { cfgFile = path }
func SetSeedURLsForTest(urls []string)        { seedURLs = urls }
func SetAllowedHostsForTest(hosts []string)   { allowedHosts = hosts }
func SetIncludesForTest(v []string)           { includes = v }
func SetExcludesForTest(v []string)           { excludes = v }
func SetAcceptForTest(v []string)             { accept = v }
func SetRejectForTest(v []string)             { reject = v }
func SetAcceptSuffixesForTest(v []string)     { acceptSuffixes = v }
func SetRejectSuffixesForTest(v []string)     { rejectSuffixes = v }
func SetMaxDepthForTest(depth int)            { maxDepth = depth }
func SetQuotaForTest(q int64)                 { quota = q }
func SetHTTPSOnlyForTest(v bool)              { httpsOnly = v }
func SetFollowFTPForTest(v bool)              { followFTP = v }
func SetRelativeOnlyForTest(v bool)           { relativeOnly = v }
func SetSpanHostForTest(v bool)               { spanHost = v }
func SetNoParentForTest(v bool)               { noParent = v }
func SetPageRequisitesForTest(v bool)         { pageRequisites = v }
func SetUseRobotsForTest(v bool)              { useRobots = v }
func SetSpiderForTest(v bool)                 { spider = v }
func SetDeleteAfterForTest(v bool)            { deleteAfter = v }
func SetRejectedLogForTest(path string)       { rejectedLog = path }
func SetLocaleForTest(v string)               { locale = v }
func SetConcurrencyForTest(conc int)          { concurrency = conc }
func SetOutputDirForTest(dir string)          { outputDir = dir }
func SetDryRunForTest(dry bool)               { dryRun = dry }
func SetUserAgentForTest(agent string)        { userAgent = agent }
func SetTimeoutForTest(t time.Duration)       { timeout = t }
func SetBaseDelayForTest(delay time.Duration) { baseDelay = delay }
func SetJitterForTest(j time.Duration)        { jitter = j }
func SetRandomSeedForTest(seed int64)         { randomSeed = seed }
