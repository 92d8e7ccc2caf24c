package usecase

import (
	"net/url"
	"strings"
	"unicode"

	"news-social/domain/model"
)

const ellipsis = "…"

// twitterURLWeight is the t.co length every link is counted as.
const twitterURLWeight = 23

var characterLimits = map[model.Platform]int{
	model.PlatformTwitter:   280,
	model.PlatformFacebook:  63206,
	model.PlatformLinkedIn:  3000,
	model.PlatformInstagram: 2200,
	model.PlatformTelegram:  4096,
}

// CharacterLimit is the hard post length for platform.
func CharacterLimit(p model.Platform) int {
	if l, ok := characterLimits[p]; ok {
		return l
	}
	return 280
}

type IContentGenerator interface {
	// GeneratePostContent is deterministic and never exceeds CharacterLimit(platform).
	GeneratePostContent(article model.Article, platform model.Platform) string
	ArticleURL(article model.Article) string
	Hashtags(article model.Article) []string
}

type ContentConfig struct {
	SiteURL         string
	ArticlePath     string
	DefaultHashtags []string
	Language        string
}

type contentGenerator struct {
	cfg ContentConfig
}

func NewContentGenerator(cfg ContentConfig) IContentGenerator {
	if cfg.ArticlePath == "" {
		cfg.ArticlePath = "/news/"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	return &contentGenerator{cfg: cfg}
}

func (g *contentGenerator) ArticleURL(a model.Article) string {
	return g.sectionURL() + url.PathEscape(a.Slug)
}

// sectionURL is the slug-less article listing, used when the article link
// alone would not fit a platform's limit.
func (g *contentGenerator) sectionURL() string {
	base := strings.TrimRight(g.cfg.SiteURL, "/")
	path := "/" + strings.Trim(g.cfg.ArticlePath, "/") + "/"
	if path == "//" {
		path = "/"
	}
	return base + path
}

// Hashtags returns #Category, tags in the article text, article tags and the
// configured defaults, de-duplicated case-insensitively in that order.
func (g *contentGenerator) Hashtags(a model.Article) []string {
	seen := make(map[string]struct{})
	out := []string{}
	add := func(raw string) {
		tag := normalizeHashtag(raw)
		if tag == "" {
			return
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	add(a.Category)
	for _, t := range extractHashtags(a.Title.Pick(g.cfg.Language) + " " + a.Description.Pick(g.cfg.Language)) {
		add(t)
	}
	for _, t := range a.Hashtags {
		add(t)
	}
	for _, t := range g.cfg.DefaultHashtags {
		add(t)
	}
	return out
}

func (g *contentGenerator) GeneratePostContent(a model.Article, p model.Platform) string {
	limit := CharacterLimit(p)
	title := strings.TrimSpace(a.Title.Pick(g.cfg.Language))
	desc := strings.TrimSpace(a.Description.Pick(g.cfg.Language))
	if p == model.PlatformTwitter || p == model.PlatformTelegram {
		desc = strings.Join(strings.Fields(desc), " ")
	}
	if p == model.PlatformTelegram {
		title = stripMarkdown(title)
	}
	link := g.ArticleURL(a)
	tags := g.Hashtags(a)
	f := formatFor(p)

	if f.measureTail(f.tail(link, nil), link) > limit {
		link = g.sectionURL()
	}
	tail := f.tail(link, tags)
	for len(tags) > 0 && f.measureTail(tail, link) > limit {
		tags = tags[:len(tags)-1]
		tail = f.tail(link, tags)
	}
	budget := limit - f.measureTail(tail, link)
	body := f.fitBody(title, desc, budget)
	out := body + tail
	if body == "" {
		out = strings.TrimLeft(tail, "\n")
	}
	// Only an oversized SiteURL gets here; the link line is cut to the limit.
	if p != model.PlatformTwitter && runeLen(out) > limit {
		out = string([]rune(out)[:limit])
	}
	return out
}

// ContentLength measures text the way platform counts it. Twitter weighs each
// occurrence of link as a t.co URL; other platforms count runes.
func ContentLength(p model.Platform, text, link string) int {
	if p != model.PlatformTwitter {
		return runeLen(text)
	}
	n := 0
	if link != "" {
		n = strings.Count(text, link) * twitterURLWeight
		text = strings.ReplaceAll(text, link, "")
	}
	for _, r := range text {
		n += twitterWeight(r)
	}
	return n
}

// postFormat describes a platform's text layout and length measure.
type postFormat struct {
	platform  model.Platform
	linkLine  func(link string) string
	wrapTitle func(title string) string
	// cost is the length contribution of one rune of article text.
	cost func(r rune) int
}

func formatFor(p model.Platform) postFormat {
	f := postFormat{
		platform:  p,
		linkLine:  func(link string) string { return "Read more: " + link },
		wrapTitle: func(t string) string { return t },
		cost:      func(rune) int { return 1 },
	}
	switch p {
	case model.PlatformTwitter:
		f.linkLine = func(link string) string { return link }
		f.cost = twitterWeight
	case model.PlatformLinkedIn:
		f.linkLine = func(link string) string { return "Read the full story: " + link }
	case model.PlatformTelegram:
		f.linkLine = func(link string) string { return "[Read more](" + link + ")" }
		f.wrapTitle = func(t string) string { return "*" + t + "*" }
		f.cost = func(r rune) int {
			if isMarkdownSpecial(r) {
				return 2
			}
			return 1
		}
	}
	return f
}

func (f postFormat) tail(link string, tags []string) string {
	s := "\n\n" + f.linkLine(link)
	if len(tags) > 0 {
		s += "\n\n" + strings.Join(tags, " ")
	}
	return s
}

// measureTail counts generated text with the platform's measure.
func (f postFormat) measureTail(tail, link string) int {
	return ContentLength(f.platform, tail, link)
}

func (f postFormat) measureText(s string) int {
	n := 0
	for _, r := range s {
		n += f.cost(r)
	}
	return n
}

func (f postFormat) escape(s string) string {
	if f.platform != model.PlatformTelegram {
		return s
	}
	return escapeMarkdown(s)
}

// fitBody renders title and description within budget, truncating the description
// first and the title only when the title alone does not fit.
func (f postFormat) fitBody(title, desc string, budget int) string {
	if budget <= 0 {
		return ""
	}
	wrapOverhead := runeLen(f.wrapTitle(""))
	titleCost := f.measureText(title) + wrapOverhead
	if desc != "" {
		if titleCost+2+f.measureText(desc) <= budget {
			return f.renderTitle(title) + "\n\n" + f.escape(desc)
		}
		if descBudget := budget - titleCost - 2; descBudget > f.measureText(ellipsis) {
			if cut := f.truncate(desc, descBudget); cut != "" {
				return f.renderTitle(title) + "\n\n" + cut
			}
		}
	}
	if titleCost <= budget {
		return f.renderTitle(title)
	}
	cut := f.truncate(title, budget-wrapOverhead)
	if cut == "" {
		return ""
	}
	return f.wrapTitle(cut)
}

func (f postFormat) renderTitle(title string) string {
	if title == "" {
		return ""
	}
	return f.wrapTitle(f.escape(title))
}

// truncate cuts s at the last whole word so that the escaped result plus the
// ellipsis fits in budget. Text without spaces is cut at a rune boundary.
func (f postFormat) truncate(s string, budget int) string {
	room := budget - f.measureText(ellipsis)
	if room <= 0 {
		return ""
	}
	runes := []rune(s)
	used, end, lastSpace := 0, 0, -1
	for i, r := range runes {
		c := f.cost(r)
		if used+c > room {
			break
		}
		used += c
		end = i + 1
		if unicode.IsSpace(r) {
			lastSpace = i
		}
	}
	if end < len(runes) && lastSpace > 0 && !unicode.IsSpace(runes[end]) {
		end = lastSpace
	}
	cut := strings.TrimRightFunc(string(runes[:end]), func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';' || r == ':' || r == '-'
	})
	if cut == "" {
		return ""
	}
	return f.escape(cut) + ellipsis
}

// twitterWeight counts code points in the twitter-text v3 weight-1 ranges as 1
// and all others, Khmer included, as 2.
func twitterWeight(r rune) int {
	switch {
	case r <= 0x10FF,
		r >= 0x2000 && r <= 0x200D,
		r >= 0x2010 && r <= 0x201F,
		r >= 0x2032 && r <= 0x2037:
		return 1
	}
	return 2
}

func isMarkdownSpecial(r rune) bool {
	return r == '_' || r == '*' || r == '[' || r == '`'
}

// stripMarkdown removes entity markers from text placed inside a bold entity,
// where legacy Markdown does not honour backslash escapes.
func stripMarkdown(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '_':
			return ' '
		case '*', '[', '`':
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func escapeMarkdown(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isMarkdownSpecial(r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func normalizeHashtag(raw string) string {
	var b strings.Builder
	for _, r := range strings.TrimPrefix(strings.TrimSpace(raw), "#") {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "#" + b.String()
}

// extractHashtags finds #word tokens already present in article text.
func extractHashtags(text string) []string {
	var out []string
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '#' {
			continue
		}
		j := i + 1
		for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || unicode.IsMark(runes[j]) || runes[j] == '_') {
			j++
		}
		if j > i+1 {
			out = append(out, string(runes[i:j]))
		}
		i = j - 1
	}
	return out
}

func runeLen(s string) int {
	return len([]rune(s))
}
