package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/brogergvhs/branchd/internal/config"
	"github.com/brogergvhs/branchd/internal/downloader"
	"github.com/brogergvhs/branchd/internal/localize"
	"github.com/brogergvhs/branchd/internal/pipeline"
	"github.com/brogergvhs/branchd/internal/providers/site"
	"github.com/brogergvhs/branchd/internal/session"
	"github.com/brogergvhs/branchd/internal/ui"
	"github.com/brogergvhs/branchd/internal/util"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var (
	// selection
	flagURL      string
	flagChapter  string
	flagRange    string
	flagList     string
	flagMaxDepth int

	// layout
	flagCombined bool
	flagJSON     bool
	flagEPUB     bool
	flagPreview  bool

	// images
	flagEmbedImages   bool
	flagConvertImages bool
	flagImageFormat   string
	flagImageQuality  int

	// runtime
	flagOutput string
	flagDryRun bool

	// headers/auth
	flagCookie     string
	flagCookieFile string
	flagUserAgent  string
)

func init() {
	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Download the chapter chain ending at --url. Uses the defaults from the selected config, overwritten by CLI flags",
		Args:  cobra.NoArgs,
		RunE:  runDownload,
	}

	// selection
	downloadCmd.Flags().StringVar(&flagURL, "url", "", "URL of the last chapter of the path to download")
	downloadCmd.Flags().StringVar(&flagChapter, "chapter", "", "export a single chapter of the chain by index or title")
	downloadCmd.Flags().StringVar(&flagRange, "range", "", "export a range of chapters by index (e.g. 5-12)")
	downloadCmd.Flags().StringVar(&flagList, "list", "", "export specific chapter indices (e.g. 1,3,5)")
	downloadCmd.Flags().IntVar(&flagMaxDepth, "max-depth", 0, "stop after this many chapters (0 = no limit)")

	// layout
	downloadCmd.Flags().BoolVar(&flagCombined, "combined", false, "write one Markdown file with every chapter")
	downloadCmd.Flags().BoolVar(&flagJSON, "json", false, "write the chain as a nested JSON tree")
	downloadCmd.Flags().BoolVar(&flagEPUB, "epub", false, "write an EPUB book")
	downloadCmd.Flags().BoolVar(&flagPreview, "preview", false, "also write an HTML preview next to each Markdown file")

	// images
	downloadCmd.Flags().BoolVar(&flagEmbedImages, "embed-images", false, "inline images as data URIs instead of saving them to images/")
	downloadCmd.Flags().BoolVar(&flagConvertImages, "convert-images", false, "re-encode images to --image-format")
	downloadCmd.Flags().StringVar(&flagImageFormat, "image-format", "", "target format for --convert-images (jpg or png)")
	downloadCmd.Flags().IntVar(&flagImageQuality, "image-quality", 0, "JPEG quality for --convert-images (1-100)")

	// runtime
	downloadCmd.Flags().StringVar(&flagOutput, "output", "", "base folder for the story folder")
	downloadCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "walk and list the chain, don’t download images or write files")

	// headers/auth
	downloadCmd.Flags().StringVar(&flagCookie, "cookie", "", "cookie string, e.g. \"key=value; other=123\"")
	downloadCmd.Flags().StringVar(&flagCookieFile, "cookie-file", "", "path to a text file with cookies (one header line)")
	downloadCmd.Flags().StringVar(&flagUserAgent, "user-agent", "", "override User-Agent")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, _ []string) (err error) {
	cfg, usedPath, err := config.LoadMerged(config.Options{
		IgnoreConfig:  flagIgnoreConfig,
		Debug:         flagDebug,
		Output:        flagOutput,
		Combined:      flagCombined,
		JSON:          flagJSON,
		EPUB:          flagEPUB,
		EmbedImages:   flagEmbedImages,
		ConvertImages: flagConvertImages,
		ImageFormat:   flagImageFormat,
		ImageQuality:  flagImageQuality,
		Preview:       flagPreview,
		MaxDepth:      flagMaxDepth,
		DefaultURL:    flagURL,
		Cookie:        flagCookie,
		CookieFile:    flagCookieFile,
		UserAgent:     flagUserAgent,
	})
	if err != nil {
		return err
	}

	if cfg.DefaultURL == "" {
		return errors.New("missing --url and no default_url in config")
	}

	out := cmd.OutOrStdout()
	logSvc := ui.NewLogger(cfg.Debug)
	defer logSvc.Sync()

	if usedPath != "" {
		_, _ = fmt.Fprintf(out, "Config file: %s\n", usedPath)
	}
	if cfg.Debug {
		fmt.Println("Full config:")
		cfg.Print()
		fmt.Println()
	}

	cookie, err := util.JoinCookies(cfg.Cookie, cfg.CookieFile)
	if err != nil {
		return fmt.Errorf("read cookie file: %w", err)
	}

	if err := os.MkdirAll(cfg.Output, 0755); err != nil {
		return fmt.Errorf("cannot create output folder: %w", err)
	}

	sess, err := session.Open(session.Options{
		Store:            session.NewStore(config.SessionFile()),
		BaseURL:          cfg.DefaultURL,
		Cookie:           cookie,
		TTL:              cfg.SessionTTL,
		Persist:          true,
		Timeout:          cfg.Timeout,
		UserAgent:        util.PickUserAgent(cfg.UserAgent),
		BypassCloudflare: true,
		Log:              logSvc.Zap(),
	})
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, sess.Close())
	}()

	scr, err := site.NewScraper(sess.Client(), cfg.Site, util.Pacer{Min: cfg.DelayMin, Max: cfg.DelayMax}, logSvc.Zap())
	if err != nil {
		return err
	}

	mode := localize.ModeFile
	if cfg.EmbedImages {
		mode = localize.ModeEmbed
	}

	var pm *ui.MPBProgressManager
	if !flagDryRun {
		pm = ui.NewProgressManager()
	}

	stopInterrupt := func() {}
	res, runErr := pipeline.Run(context.Background(), pipeline.Config{
		StartURL: cfg.DefaultURL,
		MaxDepth: cfg.MaxDepth,
		Selection: pipeline.Selection{
			Chapter: flagChapter,
			Range:   flagRange,
			List:    flagList,
		},
		OutputBase: cfg.Output,
		Layout:     cfg.Layout,
		Preview:    cfg.Preview,
		Images: localize.Options{
			Mode:         mode,
			Convert:      cfg.ConvertImages,
			Format:       cfg.ImageFormat,
			Quality:      cfg.ImageQuality,
			Placeholders: cfg.Site.Placeholders,
		},
		DryRun: flagDryRun,
	}, pipeline.Deps{
		Fetcher:  scr,
		Images:   downloader.New(sess.Client(), logSvc.Zap()),
		Log:      logSvc,
		Progress: pm,
		OnOutputDir: func(dir string) {
			stopInterrupt = util.SetupInterruptHandler(dir, func() { _ = sess.Close() })
		},
	})
	if pm != nil {
		pm.Close()
	}
	stopInterrupt()

	if runErr != nil {
		return runErr
	}

	if flagDryRun {
		printDryRun(out, res)
		return nil
	}

	res.Stats.PrintSummary(out, res.Files, res.Elapsed)
	_, _ = fmt.Fprintf(out, "\nAll done. Output in %s\n", res.Dir)
	return nil
}

func printDryRun(w io.Writer, res pipeline.Result) {
	_, _ = fmt.Fprintf(w, "Dry-run: %d chapters selected, output folder %s\n\n", len(res.Chain), res.Dir)
	for i, ch := range res.Chain {
		_, _ = fmt.Fprintf(w, "%3d) %s  [%d images]\n    %s\n", i+1, ch.Title, len(ch.ImageURLs), ch.URL)
	}
}
