package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/umputun/autoposter/pkg/domain"
	"github.com/umputun/autoposter/pkg/scheduler"
)

//go:generate moq -out mocks/settings_store.go -pkg mocks -skip-ensure -fmt goimports . SettingsStore
//go:generate moq -out mocks/poster.go -pkg mocks -skip-ensure -fmt goimports . Poster
//go:generate moq -out mocks/formatter.go -pkg mocks -skip-ensure -fmt goimports . Formatter

var commandNameRe = regexp.MustCompile(`^[a-z0-9_]{1,32}$`)

// SettingsStore reads, changes and resets runtime settings
type SettingsStore interface {
	Get() domain.Settings
	Update(fn func(s *domain.Settings) error) (domain.Settings, error)
	Reset() (domain.Settings, error)
}

// Poster controls scheduled and manual posting
type Poster interface {
	ReloadJobs() int
	PublishPost(ctx context.Context, force bool) (scheduler.PublishResult, error)
	NextRun() (time.Time, bool)
}

// Formatter previews drafts the way they will be posted
type Formatter interface {
	Format(raw, tone, topic, mood string) string
}

// reply is a response to an admin, markup is optional
type reply struct {
	text   string
	markup *tgbotapi.InlineKeyboardMarkup
}

type commandHandler func(ctx context.Context, args string) (reply, error)

// command is an admin command table entry
type command struct {
	name        string
	usage       string
	description string
	handler     commandHandler
}

// Admin serves admin commands in private chats with the bot
type Admin struct {
	bot         BotAPI
	store       SettingsStore
	poster      Poster
	formatter   Formatter
	tones       []string
	moods       []string
	styles      []string
	manualForce bool

	commands  []command
	index     map[string]command
	callbacks map[string]func(value string) (string, error)

	jobs sync.WaitGroup // long-running commands started by handleMessage
}

// AdminParams contains dependencies for Admin
type AdminParams struct {
	Bot         BotAPI
	Store       SettingsStore
	Poster      Poster
	Formatter   Formatter
	Tones       []string // allowed tone presets
	Moods       []string // allowed mood presets
	ManualForce bool     // default of /post_now dedup bypass
}

// NewAdmin makes admin command handler, the command table is validated here
func NewAdmin(params AdminParams) (*Admin, error) {
	a := &Admin{
		bot:         params.Bot,
		store:       params.Store,
		poster:      params.Poster,
		formatter:   params.Formatter,
		tones:       params.Tones,
		moods:       params.Moods,
		styles:      domain.ImageStyles,
		manualForce: params.ManualForce,
	}

	a.commands = []command{
		{name: "start", description: "Start working with the bot", handler: a.cmdHelp},
		{name: "help", description: "List commands", handler: a.cmdHelp},
		{name: "settings", description: "Show current settings", handler: a.cmdSettings},
		{name: "set_topic", usage: "<text>", description: "Set channel topic", handler: a.cmdSetTopic},
		{name: "set_times", usage: "<HH:MM,...>", description: "Set daily posting times", handler: a.cmdSetTimes},
		{name: "set_tone", usage: "[tone]", description: "Choose writing tone", handler: a.cmdSetTone},
		{name: "set_mood", usage: "[mood]", description: "Choose post mood", handler: a.cmdSetMood},
		{name: "set_style", usage: "[style]", description: "Choose image style", handler: a.cmdSetStyle},
		{name: "set_image_size", usage: "<width> <height>", description: "Set image size", handler: a.cmdSetImageSize},
		{name: "set_channel", usage: "<@name|id>", description: "Set target channel", handler: a.cmdSetChannel},
		{name: "set_keywords", usage: "[a,b,...]", description: "Set feed keywords, empty clears", handler: a.cmdSetKeywords},
		{name: "set_openai", usage: "<url> <key> [text_model] [prompt_model]", description: "Set text provider",
			handler: a.cmdSetOpenAI},
		{name: "set_image_api", usage: "<url> <key> [model]", description: "Set image provider", handler: a.cmdSetImageAPI},
		{name: "toggle", description: "Enable or disable autoposting", handler: a.cmdToggle},
		{name: "post_now", usage: "[force|noforce]", description: "Publish a post right now", handler: a.cmdPostNow},
		{name: "stats", description: "Show posting statistics", handler: a.cmdStats},
		{name: "reset", description: "Reset settings to defaults", handler: a.cmdReset},
		{name: "test_format", usage: "<text>", description: "Preview formatting of a text", handler: a.cmdTestFormat},
	}
	a.callbacks = map[string]func(string) (string, error){
		"tone":  a.setTone,
		"mood":  a.setMood,
		"style": a.setStyle,
	}

	a.index = make(map[string]command, len(a.commands))
	for _, c := range a.commands {
		if !commandNameRe.MatchString(c.name) {
			return nil, fmt.Errorf("invalid command name %q", c.name)
		}
		if c.handler == nil {
			return nil, fmt.Errorf("command %q has no handler", c.name)
		}
		if len(c.description) < 3 {
			return nil, fmt.Errorf("command %q needs a description", c.name)
		}
		if _, dup := a.index[c.name]; dup {
			return nil, fmt.Errorf("duplicate command %q", c.name)
		}
		a.index[c.name] = c
	}
	return a, nil
}

// RegisterCommands publishes the command menu with setMyCommands
func (a *Admin) RegisterCommands() error {
	cmds := make([]tgbotapi.BotCommand, 0, len(a.commands))
	for _, c := range a.commands {
		cmds = append(cmds, tgbotapi.BotCommand{Command: c.name, Description: c.description})
	}
	if _, err := a.bot.Request(tgbotapi.NewSetMyCommands(cmds...)); err != nil {
		return fmt.Errorf("set bot commands: %w", err)
	}
	return nil
}

// Run handles updates until ctx is done or the channel is closed.
// It returns after all background commands have finished.
func (a *Admin) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	lgr.Printf("[INFO] admin interface started, %d commands", len(a.commands))
	defer a.Wait()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			a.HandleUpdate(ctx, upd)
		}
	}
}

// Wait blocks until background commands, like /post_now, are done
func (a *Admin) Wait() {
	a.jobs.Wait()
}

// HandleUpdate serves a single update. Only admins get a response beyond "access denied".
func (a *Admin) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.CallbackQuery != nil:
		a.handleCallback(upd.CallbackQuery)
	case upd.Message != nil:
		a.handleMessage(ctx, upd.Message)
	}
}

func (a *Admin) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil {
		return
	}
	if !a.isAdmin(msg.From) {
		lgr.Printf("[INFO] access denied for user %s", userName(msg.From))
		a.send(msg.Chat.ID, reply{text: "⛔ Access denied"})
		return
	}
	if !msg.IsCommand() {
		a.send(msg.Chat.ID, reply{text: "Unknown input, see /help"})
		return
	}

	cmd, ok := a.index[msg.Command()]
	if !ok {
		a.send(msg.Chat.ID, reply{text: fmt.Sprintf("Unknown command /%s, see /help", escape(msg.Command()))})
		return
	}
	lgr.Printf("[INFO] admin %s runs /%s", userName(msg.From), cmd.name)
	args := strings.TrimSpace(msg.CommandArguments())
	if cmd.name != "post_now" {
		a.exec(ctx, msg.Chat.ID, cmd, args)
		return
	}

	// generation takes a while, other commands are served meanwhile. Runs are serialized by the poster.
	a.send(msg.Chat.ID, reply{text: "⏳ Generating post..."})
	a.jobs.Add(1)
	go func() {
		defer a.jobs.Done()
		a.exec(ctx, msg.Chat.ID, cmd, args)
	}()
}

func (a *Admin) exec(ctx context.Context, chatID int64, cmd command, args string) {
	resp, err := cmd.handler(ctx, args)
	if err != nil {
		lgr.Printf("[WARN] /%s failed: %v", cmd.name, err)
		a.send(chatID, reply{text: "⚠️ " + escape(err.Error())})
		return
	}
	a.send(chatID, resp)
}

func (a *Admin) handleCallback(cb *tgbotapi.CallbackQuery) {
	if !a.isAdmin(cb.From) {
		a.answer(cb.ID, "Access denied")
		return
	}
	prefix, value, ok := strings.Cut(cb.Data, ":")
	handler, known := a.callbacks[prefix]
	if !ok || !known {
		a.answer(cb.ID, "Unknown action")
		return
	}

	text, err := handler(value)
	if err != nil {
		text = "⚠️ " + escape(err.Error())
	}
	a.answer(cb.ID, "")
	if cb.Message != nil && cb.Message.Chat != nil {
		a.send(cb.Message.Chat.ID, reply{text: text})
	}
}

func (a *Admin) isAdmin(u *tgbotapi.User) bool {
	return u != nil && slices.Contains(a.store.Get().AdminIDs, u.ID)
}

func (a *Admin) send(chatID int64, r reply) {
	if r.text == "" {
		return
	}
	msg := tgbotapi.NewMessage(chatID, r.text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if r.markup != nil {
		msg.ReplyMarkup = *r.markup
	}
	if _, err := a.bot.Send(msg); err != nil {
		lgr.Printf("[WARN] failed to reply to %d: %v", chatID, err)
	}
}

func (a *Admin) answer(callbackID, text string) {
	if _, err := a.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		lgr.Printf("[WARN] failed to answer callback: %v", err)
	}
}

func (a *Admin) cmdHelp(context.Context, string) (reply, error) {
	var sb strings.Builder
	sb.WriteString("<b>Autoposter admin</b>\n\n")
	for _, c := range a.commands {
		sb.WriteString("/" + c.name)
		if c.usage != "" {
			sb.WriteString(" " + escape(c.usage))
		}
		sb.WriteString(" - " + escape(c.description) + "\n")
	}
	return reply{text: sb.String()}, nil
}

func (a *Admin) cmdSettings(context.Context, string) (reply, error) {
	s := a.store.Get().Redacted()
	lines := []string{
		"<b>Settings</b>",
		"topic: " + escape(orDash(s.Topic)),
		"channel: " + escape(orDash(s.Channel)),
		"autopost: " + onOff(s.AutopostEnabled),
		"posting times: " + escape(orDash(strings.Join(s.PostingTimes, ", "))),
		"tone: " + escape(orDash(s.Tone)),
		"mood: " + escape(orDash(s.Mood)),
		"image style: " + escape(orDash(s.ImageStyle)),
		fmt.Sprintf("image size: %dx%d", s.ImageWidth, s.ImageHeight),
		"keywords: " + escape(orDash(strings.Join(s.SourceKeywords, ", "))),
		"text api: " + escape(orDash(s.OpenAIURL)) + " key " + escape(orDash(s.OpenAIKey)),
		"text model: " + escape(orDash(s.TextModel)) + ", prompt model: " + escape(orDash(s.PromptModel)),
		"image api: " + escape(orDash(s.ImageAPIURL)) + " key " + escape(orDash(s.ImageAPIKey)),
		"image model: " + escape(orDash(s.ImageModel)),
	}
	return reply{text: strings.Join(lines, "\n")}, nil
}

func (a *Admin) cmdSetTopic(_ context.Context, args string) (reply, error) {
	if args == "" {
		return reply{}, errors.New("usage: /set_topic <text>")
	}
	if _, err := a.store.Update(func(s *domain.Settings) error {
		s.Topic = args
		return nil
	}); err != nil {
		return reply{}, err
	}
	return reply{text: "✅ Topic set to " + escape(args)}, nil
}

func (a *Admin) cmdSetTimes(_ context.Context, args string) (reply, error) {
	times, err := domain.ParsePostingTimes(args)
	if err != nil {
		return reply{}, err
	}
	if len(times) == 0 {
		return reply{}, errors.New("usage: /set_times 09:00,15:30")
	}
	if _, err = a.store.Update(func(s *domain.Settings) error {
		s.PostingTimes = times
		return nil
	}); err != nil {
		return reply{}, err
	}
	n := a.poster.ReloadJobs()
	return reply{text: fmt.Sprintf("✅ Posting times: %s, %d jobs scheduled", strings.Join(times, ", "), n)}, nil
}

func (a *Admin) cmdSetTone(_ context.Context, args string) (reply, error) {
	return a.choose(args, "tone", a.tones, a.setTone)
}

func (a *Admin) cmdSetMood(_ context.Context, args string) (reply, error) {
	return a.choose(args, "mood", a.moods, a.setMood)
}

func (a *Admin) cmdSetStyle(_ context.Context, args string) (reply, error) {
	return a.choose(args, "style", a.styles, a.setStyle)
}

// choose applies the value if given, otherwise offers an inline keyboard with allowed values
func (a *Admin) choose(args, prefix string, values []string, set func(string) (string, error)) (reply, error) {
	if args != "" {
		text, err := set(args)
		return reply{text: text}, err
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(values))
	for _, v := range values {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(v, prefix+":"+v)))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return reply{text: "Choose " + prefix + ":", markup: &markup}, nil
}

func (a *Admin) setTone(v string) (string, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if !slices.Contains(a.tones, v) {
		return "", fmt.Errorf("unknown tone %q, allowed: %s", v, strings.Join(a.tones, ", "))
	}
	if _, err := a.store.Update(func(s *domain.Settings) error {
		s.Tone = v
		return nil
	}); err != nil {
		return "", err
	}
	return "✅ Tone set to " + escape(v), nil
}

func (a *Admin) setMood(v string) (string, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if !slices.Contains(a.moods, v) {
		return "", fmt.Errorf("unknown mood %q, allowed: %s", v, strings.Join(a.moods, ", "))
	}
	if _, err := a.store.Update(func(s *domain.Settings) error {
		s.Mood = v
		return nil
	}); err != nil {
		return "", err
	}
	return "✅ Mood set to " + escape(v), nil
}

func (a *Admin) setStyle(v string) (string, error) {
	v = strings.ToUpper(strings.TrimSpace(v))
	if _, err := a.store.Update(func(s *domain.Settings) error {
		s.ImageStyle = v
		return nil
	}); err != nil {
		return "", err
	}
	return "✅ Image style set to " + escape(v), nil
}

func (a *Admin) cmdSetImageSize(_ context.Context, args string) (reply, error) {
	fields := strings.Fields(strings.ReplaceAll(strings.ToLower(args), "x", " "))
	if len(fields) != 2 {
		return reply{}, errors.New("usage: /set_image_size <width> <height>")
	}
	w, errW := strconv.Atoi(fields[0])
	h, errH := strconv.Atoi(fields[1])
	if errW != nil || errH != nil {
		return reply{}, errors.New("width and height must be numbers")
	}
	if _, err := a.store.Update(func(s *domain.Settings) error {
		s.ImageWidth, s.ImageHeight = w, h
		return nil
	}); err != nil {
		return reply{}, err
	}
	return reply{text: fmt.Sprintf("✅ Image size set to %dx%d", w, h)}, nil
}

func (a *Admin) cmdSetChannel(_ context.Context, args string) (reply, error) {
	if _, _, err := ParseChannel(args); err != nil {
		return reply{}, err
	}
	if _, err := a.store.Update(func(s *domain.Settings) error {
		s.Channel = args
		return nil
	}); err != nil {
		return reply{}, err
	}
	n := a.poster.ReloadJobs()
	return reply{text: fmt.Sprintf("✅ Channel set to %s, %d jobs scheduled", escape(args), n)}, nil
}

func (a *Admin) cmdSetKeywords(_ context.Context, args string) (reply, error) {
	keywords := []string{}
	for _, kw := range strings.Split(args, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	if _, err := a.store.Update(func(s *domain.Settings) error {
		s.SourceKeywords = keywords
		return nil
	}); err != nil {
		return reply{}, err
	}
	if len(keywords) == 0 {
		return reply{text: "✅ Keywords cleared"}, nil
	}
	return reply{text: "✅ Keywords: " + escape(strings.Join(keywords, ", "))}, nil
}

func (a *Admin) cmdSetOpenAI(_ context.Context, args string) (reply, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 || len(fields) > 4 {
		return reply{}, errors.New("usage: /set_openai <url> <key> [text_model] [prompt_model]")
	}
	if err := checkURL(fields[0]); err != nil {
		return reply{}, err
	}
	if _, err := a.store.Update(func(s *domain.Settings) error {
		s.OpenAIURL, s.OpenAIKey = fields[0], fields[1]
		if len(fields) > 2 {
			s.TextModel = fields[2]
		}
		if len(fields) > 3 {
			s.PromptModel = fields[3]
		}
		return nil
	}); err != nil {
		return reply{}, err
	}
	return reply{text: "✅ Text provider updated, key " + escape(domain.MaskSecret(fields[1]))}, nil
}

func (a *Admin) cmdSetImageAPI(_ context.Context, args string) (reply, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 || len(fields) > 3 {
		return reply{}, errors.New("usage: /set_image_api <url> <key> [model]")
	}
	if err := checkURL(fields[0]); err != nil {
		return reply{}, err
	}
	if _, err := a.store.Update(func(s *domain.Settings) error {
		s.ImageAPIURL, s.ImageAPIKey = fields[0], fields[1]
		if len(fields) > 2 {
			s.ImageModel = fields[2]
		}
		return nil
	}); err != nil {
		return reply{}, err
	}
	return reply{text: "✅ Image provider updated, key " + escape(domain.MaskSecret(fields[1]))}, nil
}

func (a *Admin) cmdToggle(context.Context, string) (reply, error) {
	s, err := a.store.Update(func(s *domain.Settings) error {
		s.AutopostEnabled = !s.AutopostEnabled
		return nil
	})
	if err != nil {
		return reply{}, err
	}
	n := a.poster.ReloadJobs()
	return reply{text: fmt.Sprintf("✅ Autoposting %s, %d jobs scheduled", onOff(s.AutopostEnabled), n)}, nil
}

func (a *Admin) cmdPostNow(ctx context.Context, args string) (reply, error) {
	force := a.manualForce
	switch strings.ToLower(args) {
	case "":
	case "force":
		force = true
	case "noforce":
		force = false
	default:
		return reply{}, errors.New("usage: /post_now [force|noforce]")
	}

	res, err := a.poster.PublishPost(ctx, force)
	if err != nil {
		if errors.Is(err, domain.ErrPermission) {
			return reply{}, fmt.Errorf("bot has no rights to post, autoposting disabled: %w", err)
		}
		return reply{}, err
	}
	switch res.Status {
	case scheduler.StatusPublished:
		return reply{text: fmt.Sprintf("✅ Published, message %d", res.MessageID)}, nil
	case scheduler.StatusDuplicate:
		return reply{text: "♻️ Every draft repeated a recent post, nothing published. Try /post_now force"}, nil
	default:
		return reply{text: "ℹ️ Nothing to publish, check channel and api key in /settings"}, nil
	}
}

func (a *Admin) cmdStats(context.Context, string) (reply, error) {
	s := a.store.Get()
	last := "never"
	if s.Stats.LastPostAt != nil {
		last = s.Stats.LastPostAt.Local().Format("2006-01-02 15:04")
	}
	next := "not scheduled"
	if t, ok := a.poster.NextRun(); ok {
		next = t.Format("2006-01-02 15:04 MST")
	}
	lines := []string{
		"<b>Stats</b>",
		fmt.Sprintf("total posts: %d", s.Stats.TotalPosts),
		"last post: " + last,
		"next run: " + next,
		"autopost: " + onOff(s.AutopostEnabled),
	}
	return reply{text: strings.Join(lines, "\n")}, nil
}

func (a *Admin) cmdReset(context.Context, string) (reply, error) {
	if _, err := a.store.Reset(); err != nil {
		return reply{}, err
	}
	n := a.poster.ReloadJobs()
	return reply{text: fmt.Sprintf("✅ Settings reset to defaults, %d jobs scheduled", n)}, nil
}

func (a *Admin) cmdTestFormat(_ context.Context, args string) (reply, error) {
	if args == "" {
		return reply{}, errors.New("usage: /test_format <text>")
	}
	s := a.store.Get()
	return reply{text: a.formatter.Format(args, s.Tone, s.Topic, s.Mood)}, nil
}

func checkURL(v string) error {
	u, err := url.Parse(v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid url %q", v)
	}
	return nil
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeHTML, s)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func userName(u *tgbotapi.User) string {
	if u == nil {
		return "unknown"
	}
	if u.UserName != "" {
		return fmt.Sprintf("%s (%d)", u.UserName, u.ID)
	}
	return strconv.FormatInt(u.ID, 10)
}
