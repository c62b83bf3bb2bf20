// Package format turns raw generated drafts into Telegram-ready HTML captions
package format

import (
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/umputun/autoposter/pkg/config"
)

// MaxLength is the Telegram caption limit, in UTF-16 code units
const MaxLength = 1024

const (
	maxTitleLen = 256
	maxTagLen   = 32
	ellipsis    = "…"
)

var (
	hashtagRe       = regexp.MustCompile(`(^|\s)#[\p{L}\p{N}_]+`)
	headingPrefixRe = regexp.MustCompile(`^#{1,6}\s+`)
	defaultPool     = []string{"✨", "📌", "🔥"}
)

// Formatter builds captions from drafts. Safe for concurrent use.
type Formatter struct {
	cfg config.FormatConfig

	mu  sync.Mutex
	rnd *rand.Rand
}

// New makes a formatter with given presets, rnd is optional and allows deterministic tests
func New(cfg config.FormatConfig, rnd *rand.Rand) *Formatter {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)) //nolint:gosec // emoji choice only
	}
	if len(cfg.Markers) == 0 {
		cfg.Markers = []string{"•"}
	}
	return &Formatter{cfg: cfg, rnd: rnd}
}

// Format converts raw draft into HTML caption no longer than MaxLength.
// The first non-empty line becomes a bold title with emoji prefix, bullet lines get rotating markers,
// hashtags are appended if the draft has none.
func (f *Formatter) Format(raw, tone, topic, mood string) string {
	cleaned := strings.TrimSpace(strings.ReplaceAll(raw, "\r\n", "\n"))
	if cleaned == "" {
		cleaned = f.cfg.Placeholder
	}

	title, rest := splitTitle(cleaned)
	if title = cleanTitle(title); title == "" {
		title = f.cfg.Placeholder
	}
	header := f.emojiPrefix(tone, mood) + " <b>" + limitHTML(escape(typography(title)), maxTitleLen) + "</b>"

	paragraphs := f.paragraphs(rest)
	body := header
	if len(paragraphs) > 0 {
		body += "\n\n" + strings.Join(paragraphs, "\n\n")
	}

	suffix := ""
	if !hashtagRe.MatchString(cleaned) {
		suffix = "\n\n" + strings.Join(f.hashtags(topic), " ")
	}

	budget := MaxLength - utf16Len(suffix)
	return limitHTML(body, budget) + suffix
}

// ToneDescription returns the generator instruction for tone, the tone name itself if unknown
func (f *Formatter) ToneDescription(tone string) string {
	if t, ok := f.cfg.Tones[strings.ToLower(tone)]; ok && t.Description != "" {
		return t.Description
	}
	return tone
}

func (f *Formatter) emojiPrefix(tone, mood string) string {
	pool := defaultPool
	if t, ok := f.cfg.Tones[strings.ToLower(tone)]; ok && len(t.Emoji) > 0 {
		pool = t.Emoji
	}
	moodPool := f.cfg.Moods[strings.ToLower(mood)]

	f.mu.Lock()
	defer f.mu.Unlock()

	n := min(2, len(pool))
	picked := make([]string, 0, n+1)
	for _, idx := range f.rnd.Perm(len(pool))[:n] {
		picked = append(picked, pool[idx])
	}
	if len(moodPool) > 0 {
		picked = append(picked, moodPool[f.rnd.IntN(len(moodPool))])
	}
	return strings.Join(picked, " ")
}

// paragraphs splits text on blank lines, normalizes bullets and escapes everything.
// All bullets of one paragraph share a marker, the marker rotates between bullet paragraphs.
func (f *Formatter) paragraphs(text string) []string {
	res := []string{}
	listIdx := 0
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		marker := f.cfg.Markers[listIdx%len(f.cfg.Markers)]
		hasBullets := false
		lines := make([]string, 0, len(current))
		for _, line := range current {
			line = strings.ReplaceAll(line, "**", "")
			if item, ok := bulletItem(line); ok {
				hasBullets = true
				lines = append(lines, marker+" "+escape(typography(item)))
				continue
			}
			lines = append(lines, escape(typography(line)))
		}
		if hasBullets {
			listIdx++
		}
		res = append(res, strings.Join(lines, "\n"))
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return res
}

func (f *Formatter) hashtags(topic string) []string {
	candidates := []string{}
	if tag := tagify(topic); tag != "" {
		candidates = append(candidates, tag)
	}
	for _, word := range strings.Fields(topic) {
		if tag := tagify(word); utf8.RuneCountInString(tag) > 1 {
			candidates = append(candidates, tag)
		}
	}
	for _, h := range f.cfg.Hashtags {
		if tag := tagify(h); tag != "" {
			candidates = append(candidates, tag)
		}
	}

	seen := map[string]bool{}
	uniq := []string{}
	for _, c := range candidates {
		key := strings.ToLower(c)
		if seen[key] {
			continue
		}
		seen[key] = true
		uniq = append(uniq, "#"+c)
	}
	if len(uniq) == 0 {
		uniq = []string{"#telegram"}
	}

	f.mu.Lock()
	count := 3 + f.rnd.IntN(3)
	f.mu.Unlock()
	return uniq[:min(count, len(uniq))]
}

// splitTitle returns the first non-empty line and everything after it
func splitTitle(text string) (title, rest string) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		return strings.TrimSpace(line), strings.Join(lines[i+1:], "\n")
	}
	return "", ""
}

// cleanTitle drops markdown heading and emphasis markers
func cleanTitle(title string) string {
	title = headingPrefixRe.ReplaceAllString(title, "")
	title = strings.ReplaceAll(title, "**", "")
	title = strings.ReplaceAll(title, "__", "")
	return strings.TrimSpace(strings.Trim(title, "*_ "))
}

func bulletItem(line string) (string, bool) {
	if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") {
		return strings.TrimSpace(line[2:]), true
	}
	return "", false
}

// typography replaces straight quotes with angled ones and spaced hyphens with em-dash
func typography(s string) string {
	var sb strings.Builder
	open := true
	for _, r := range s {
		switch r {
		case '"':
			if open {
				sb.WriteString("«")
			} else {
				sb.WriteString("»")
			}
			open = !open
		case '\'':
			sb.WriteString("’")
		default:
			sb.WriteRune(r)
		}
	}
	return strings.ReplaceAll(sb.String(), " - ", " — ")
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeHTML, s)
}

// tagify keeps letters, digits and underscores, the result is usable as a hashtag body
func tagify(s string) string {
	var sb strings.Builder
	n := 0
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			continue
		}
		if n >= maxTagLen {
			break
		}
		sb.WriteRune(r)
		n++
	}
	return sb.String()
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// limitHTML cuts escaped text to limit UTF-16 units including the ellipsis
func limitHTML(s string, limit int) string {
	if utf16Len(s) <= limit {
		return s
	}
	return truncateHTML(s, limit-utf16Len(ellipsis)) + ellipsis
}

// truncateHTML cuts escaped text to at most limit UTF-16 units without splitting an entity or a tag
func truncateHTML(s string, limit int) string {
	cut := cutUTF16(s, limit)
	if amp := strings.LastIndexByte(cut, '&'); amp >= 0 && !strings.Contains(cut[amp:], ";") {
		cut = cut[:amp]
	}
	if lt := strings.LastIndexByte(cut, '<'); lt >= 0 && !strings.Contains(cut[lt:], ">") {
		cut = cut[:lt]
	}
	return strings.TrimRightFunc(cut, unicode.IsSpace)
}

// cutUTF16 returns the longest prefix of s with at most limit UTF-16 units, never splitting a rune
func cutUTF16(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	n := 0
	for i, r := range s {
		l := utf16.RuneLen(r)
		if n+l > limit {
			return s[:i]
		}
		n += l
	}
	return s
}
