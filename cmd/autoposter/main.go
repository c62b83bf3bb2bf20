package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/umputun/autoposter/pkg/config"
	"github.com/umputun/autoposter/pkg/content"
	"github.com/umputun/autoposter/pkg/domain"
	"github.com/umputun/autoposter/pkg/feed"
	"github.com/umputun/autoposter/pkg/format"
	"github.com/umputun/autoposter/pkg/image"
	"github.com/umputun/autoposter/pkg/llm"
	"github.com/umputun/autoposter/pkg/repository"
	"github.com/umputun/autoposter/pkg/retry"
	"github.com/umputun/autoposter/pkg/scheduler"
	"github.com/umputun/autoposter/pkg/telegram"
	"github.com/umputun/autoposter/server"
)

// Opts with all CLI options, every settings default can be set from environment
type Opts struct {
	BotToken     string   `long:"bot-token" env:"BOT_TOKEN" required:"true" description:"telegram bot token"`
	AdminIDs     []int64  `long:"admin-id" env:"ADMIN_IDS" env-delim:"," description:"telegram user ids allowed to manage the bot"`
	Channel      string   `long:"channel" env:"CHANNEL" description:"target channel, @username or numeric chat id"`
	Topic        string   `long:"topic" env:"TOPIC" description:"channel topic"`
	PostingTimes string   `long:"posting-times" env:"POSTING_TIMES" default:"09:00,15:00,21:00" description:"daily posting times, comma separated HH:MM"`
	Tone         string   `long:"tone" env:"TONE" default:"friendly" description:"writing tone preset"`
	Mood         string   `long:"mood" env:"MOOD" default:"morning" description:"mood preset"`
	TextModel    string   `long:"text-model" env:"TEXT_MODEL" default:"gpt-4o-mini" description:"model for post drafts"`
	PromptModel  string   `long:"prompt-model" env:"PROMPT_MODEL" description:"model for image prompts, defaults to text model"`
	Autopost     bool     `long:"autopost" env:"AUTOPOST" description:"enable scheduled posting"`
	Keywords     []string `long:"keyword" env:"SOURCE_KEYWORDS" env-delim:"," description:"feed items must mention one of keywords"`
	ManualForce  bool     `long:"manual-force" env:"MANUAL_FORCE" description:"manual posts bypass duplicate check by default"`

	OpenAI struct {
		URL string `long:"url" env:"URL" default:"https://api.openai.com/v1" description:"OpenAI-compatible API base url"`
		Key string `long:"key" env:"KEY" description:"API key"`
	} `group:"openai" namespace:"openai" env-namespace:"OPENAI"`

	Image struct {
		Style  string `long:"style" env:"STYLE" default:"DEFAULT" description:"image style: DEFAULT, KANDINSKY, UHD or ANIME"`
		Width  int    `long:"width" env:"WIDTH" default:"1024" description:"image width"`
		Height int    `long:"height" env:"HEIGHT" default:"1024" description:"image height"`
		Model  string `long:"model" env:"MODEL" default:"dall-e-3" description:"image model"`
		APIURL string `long:"api-url" env:"API_URL" description:"image API base url, defaults to openai url"`
		APIKey string `long:"api-key" env:"API_KEY" description:"image API key, defaults to openai key"`
	} `group:"image" namespace:"image" env-namespace:"IMAGE"`

	Settings    string `long:"settings" env:"SETTINGS" default:"config.json" description:"runtime settings file"`
	Config      string `short:"c" long:"config" env:"CONFIG" description:"application config file (yml)"`
	Timezone    string `long:"timezone" env:"TIMEZONE" description:"timezone for posting times, overrides config"`
	TelegramAPI string `long:"telegram-api" env:"TELEGRAM_API" default:"https://api.telegram.org/bot%s/%s" description:"telegram bot api endpoint template"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	envErr := godotenv.Load() // optional, variables already set in environment win

	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	setupLog(opts.Debug, opts.NoColor, opts.BotToken, opts.OpenAI.Key, opts.Image.APIKey)
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		lgr.Printf("[WARN] failed to load .env: %v", envErr)
	}

	lgr.Printf("[INFO] starting autoposter version %s", revision)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		lgr.Printf("[ERROR] %v", err)
		os.Exit(1) //nolint:gocritic // cancel is irrelevant on exit
	}

	lgr.Print("[INFO] shutdown complete")
}

// run wires all components and blocks until ctx is done or one of the loops fails
func run(ctx context.Context, opts Opts) error {
	cfg := config.Default()
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if opts.Timezone != "" {
		if _, err := time.LoadLocation(opts.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", opts.Timezone, err)
		}
		cfg.Timezone = opts.Timezone
	}

	defaults, err := envSettings(opts)
	if err != nil {
		return fmt.Errorf("invalid settings defaults: %w", err)
	}
	store := repository.NewSettingRepository(opts.Settings, defaults, repository.WithPresets(cfg.ToneNames(), cfg.MoodNames()))
	settings, err := store.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	lgr.Printf("[INFO] settings loaded from %s, topic %q, channel %q, autopost %v, times %v",
		opts.Settings, settings.Topic, settings.Channel, settings.AutopostEnabled, settings.PostingTimes)
	if settings.OpenAIKey == "" {
		lgr.Printf("[WARN] openai key is not set, posting is a no-op until /set_openai")
	}
	if len(settings.AdminIDs) == 0 {
		lgr.Printf("[WARN] no admin ids configured, admin commands are unavailable")
	}

	rf := retry.Backoff(cfg.Retry.Attempts, cfg.Retry.Initial, cfg.Retry.MaxDelay, cfg.Retry.Jitter)

	textGen, err := llm.NewGenerator(cfg.LLM, rf)
	if err != nil {
		return fmt.Errorf("failed to create text generator: %w", err)
	}
	imageGen := image.NewGenerator(cfg.Image, rf)
	formatter := format.New(cfg.Format, nil)

	builder := scheduler.NewPostBuilder(scheduler.PostBuilderParams{
		Sources:          makeSources(cfg.Sources, rf),
		Text:             textGen,
		Images:           imageGen,
		Formatter:        formatter,
		ResampleAttempts: cfg.LLM.ResampleAttempts,
	})

	if err = tgbotapi.SetLogger(botLogger{}); err != nil {
		return fmt.Errorf("failed to set telegram logger: %w", err)
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(opts.BotToken, opts.TelegramAPI)
	if err != nil {
		return fmt.Errorf("failed to connect to telegram: %w", err)
	}
	lgr.Printf("[INFO] authorized as @%s", bot.Self.UserName)

	sched := scheduler.NewScheduler(scheduler.Params{
		Store:     store,
		Builder:   builder,
		Publisher: telegram.NewPublisher(bot, rf),
		Cleaner:   imageGen,
		Location:  cfg.Location(),
	})

	admin, err := telegram.NewAdmin(telegram.AdminParams{
		Bot:         bot,
		Store:       store,
		Poster:      sched,
		Formatter:   formatter,
		Tones:       cfg.ToneNames(),
		Moods:       cfg.MoodNames(),
		ManualForce: opts.ManualForce,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin interface: %w", err)
	}
	if err = admin.RegisterCommands(); err != nil {
		lgr.Printf("[WARN] failed to register bot commands: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sched.Start(gctx)
		<-gctx.Done()
		sched.Shutdown()
		return nil
	})

	g.Go(func() error {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates := bot.GetUpdatesChan(u)
		go func() {
			<-gctx.Done()
			bot.StopReceivingUpdates()
		}()
		if err := admin.Run(gctx, updates); err != nil && gctx.Err() == nil {
			return fmt.Errorf("admin interface: %w", err)
		}
		return nil
	})

	if cfg.Server.Listen != "" {
		srv := server.New(server.Params{
			Settings: store,
			Jobs:     sched,
			Config:   cfg.Server,
			Version:  revision,
			Debug:    opts.Debug,
		})
		g.Go(func() error { return srv.Run(gctx) })
	}

	return g.Wait()
}

// envSettings makes settings defaults from options and environment
func envSettings(opts Opts) (domain.Settings, error) {
	times, err := domain.ParsePostingTimes(opts.PostingTimes)
	if err != nil {
		return domain.Settings{}, err
	}
	res := domain.Settings{
		AdminIDs:        opts.AdminIDs,
		Topic:           opts.Topic,
		PostingTimes:    times,
		Tone:            opts.Tone,
		Mood:            opts.Mood,
		ImageStyle:      opts.Image.Style,
		ImageWidth:      opts.Image.Width,
		ImageHeight:     opts.Image.Height,
		ImageModel:      opts.Image.Model,
		ImageAPIURL:     opts.Image.APIURL,
		ImageAPIKey:     opts.Image.APIKey,
		OpenAIURL:       opts.OpenAI.URL,
		OpenAIKey:       opts.OpenAI.Key,
		TextModel:       opts.TextModel,
		PromptModel:     opts.PromptModel,
		Channel:         opts.Channel,
		AutopostEnabled: opts.Autopost,
		SourceKeywords:  opts.Keywords,
	}
	if err := res.Validate(); err != nil {
		return domain.Settings{}, err
	}
	return res, nil
}

// makeSources returns seed sources in priority order, topic source is the last resort
func makeSources(cfg config.SourcesConfig, rf retry.Func) []scheduler.Source {
	if len(cfg.Feeds) == 0 {
		return []scheduler.Source{feed.TopicSource{}}
	}
	params := feed.SourceParams{Config: cfg, Retry: rf}
	if cfg.ExtractContent {
		params.Extractor = content.NewHTTPExtractor(cfg.Timeout, cfg.UserAgent, cfg.MinTextLength)
	}
	lgr.Printf("[INFO] %d feeds configured, article extraction %v", len(cfg.Feeds), cfg.ExtractContent)
	return []scheduler.Source{feed.NewSource(params), feed.TopicSource{}}
}

// botLogger sends telegram library messages to lgr, Println is used by the library for failures only
type botLogger struct{}

func (botLogger) Println(v ...any) {
	lgr.Print("[WARN] telegram: " + fmt.Sprint(v...))
}

func (botLogger) Printf(format string, v ...any) {
	lgr.Printf("[DEBUG] telegram: "+format, v...)
}

func setupLog(dbg, noColor bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	if !noColor {
		colorizer := lgr.Mapper{
			ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
			WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
			InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
			DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
			CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
			TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
		}
		logOpts = append(logOpts, lgr.Map(colorizer))
	}

	var nonEmpty []string
	for _, s := range secs {
		if s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	if len(nonEmpty) > 0 {
		logOpts = append(logOpts, lgr.Secret(nonEmpty...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
