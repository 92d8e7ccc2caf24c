package usecase

import (
	"strings"
	"testing"
	"unicode/utf8"

	"news-social/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGenerator() IContentGenerator {
	return NewContentGenerator(ContentConfig{
		SiteURL:         "https://news.example.com/",
		ArticlePath:     "news",
		DefaultHashtags: []string{"#News", "Cambodia"},
		Language:        "en",
	})
}

func longArticle() model.Article {
	return model.Article{
		Title:       model.LocalizedText{EN: "Parliament approves the national budget after a long debate"},
		Description: model.LocalizedText{EN: strings.Repeat("Lawmakers discussed spending on roads, schools and clinics across the provinces. ", 80)},
		Slug:        "budget-approved",
		Category:    "Politics & Law",
	}
}

func TestGeneratePostContent_RespectsLimits(t *testing.T) {
	g := testGenerator()
	a := longArticle()
	link := g.ArticleURL(a)

	for _, p := range model.AllPlatforms {
		t.Run(string(p), func(t *testing.T) {
			out := g.GeneratePostContent(a, p)
			assert.LessOrEqual(t, ContentLength(p, out, link), CharacterLimit(p))
			assert.Contains(t, out, link)
		})
	}
}

func TestGeneratePostContent_TwitterKeepsLinkAndHashtags(t *testing.T) {
	g := testGenerator()
	a := longArticle()
	out := g.GeneratePostContent(a, model.PlatformTwitter)

	assert.LessOrEqual(t, ContentLength(model.PlatformTwitter, out, g.ArticleURL(a)), 280)
	assert.True(t, strings.HasSuffix(out, "#PoliticsLaw #News #Cambodia"), out)
	assert.Contains(t, out, "https://news.example.com/news/budget-approved")
	assert.Contains(t, out, ellipsis)

	// the body is cut on a word boundary
	body := strings.SplitN(out, "\n\n", 3)[1]
	trimmed := strings.TrimSuffix(body, ellipsis)
	assert.True(t, strings.HasPrefix(a.Description.EN, trimmed))
	next := a.Description.EN[len(trimmed)]
	assert.True(t, next == ' ' || next == ',' || next == '.', "cut mid-word: %q", trimmed)
}

func TestGeneratePostContent_Deterministic(t *testing.T) {
	g := testGenerator()
	a := longArticle()
	for _, p := range model.AllPlatforms {
		assert.Equal(t, g.GeneratePostContent(a, p), g.GeneratePostContent(a, p))
	}
}

func TestGeneratePostContent_ShortArticleUntouched(t *testing.T) {
	g := testGenerator()
	a := model.Article{
		Title:       model.LocalizedText{EN: "Test"},
		Description: model.LocalizedText{EN: "Body text"},
		Slug:        "test",
	}
	out := g.GeneratePostContent(a, model.PlatformFacebook)
	assert.Equal(t, "Test\n\nBody text\n\nRead more: https://news.example.com/news/test\n\n#News #Cambodia", out)
}

func TestGeneratePostContent_KhmerWeightedForTwitter(t *testing.T) {
	g := NewContentGenerator(ContentConfig{SiteURL: "https://news.example.com", Language: "kh"})
	a := model.Article{
		Title:       model.LocalizedText{EN: "English title", KH: "ព័ត៌មាន"},
		Description: model.LocalizedText{KH: strings.Repeat("រដ្ឋសភាអនុម័តថវិកាជាតិ ", 40)},
		Slug:        "kh-budget",
	}
	out := g.GeneratePostContent(a, model.PlatformTwitter)

	require.True(t, strings.HasPrefix(out, "ព័ត៌មាន"))
	assert.LessOrEqual(t, ContentLength(model.PlatformTwitter, out, g.ArticleURL(a)), 280)
	assert.Contains(t, out, "https://news.example.com/news/kh-budget")
}

func TestGeneratePostContent_LanguageFallback(t *testing.T) {
	g := NewContentGenerator(ContentConfig{SiteURL: "https://x.test", Language: "kh"})
	a := model.Article{Title: model.LocalizedText{EN: "Only English"}, Slug: "s"}
	out := g.GeneratePostContent(a, model.PlatformLinkedIn)
	assert.True(t, strings.HasPrefix(out, "Only English\n\nRead the full story: https://x.test/news/s"), out)
}

func TestGeneratePostContent_TelegramMarkdown(t *testing.T) {
	g := testGenerator()
	a := model.Article{
		Title:       model.LocalizedText{EN: "Price_index *rises*"},
		Description: model.LocalizedText{EN: "See [table] and `code`"},
		Slug:        "cpi",
	}
	out := g.GeneratePostContent(a, model.PlatformTelegram)
	assert.True(t, strings.HasPrefix(out, "*Price index rises*\n\n"), out)
	assert.Contains(t, out, "See \\[table] and \\`code\\`")
	assert.Contains(t, out, "[Read more](https://news.example.com/news/cpi)")
}

func TestGeneratePostContent_DropsTrailingHashtagsWhenTailTooLong(t *testing.T) {
	tags := make([]string, 0, 60)
	for i := 0; i < 60; i++ {
		tags = append(tags, "#Tag"+strings.Repeat("x", 5)+string(rune('a'+i%26))+string(rune('a'+i/26)))
	}
	g := NewContentGenerator(ContentConfig{SiteURL: "https://news.example.com", DefaultHashtags: tags})
	a := model.Article{Title: model.LocalizedText{EN: "Headline"}, Slug: "h"}

	out := g.GeneratePostContent(a, model.PlatformTwitter)

	assert.LessOrEqual(t, ContentLength(model.PlatformTwitter, out, g.ArticleURL(a)), 280)
	assert.Contains(t, out, "https://news.example.com/news/h")
	assert.Contains(t, out, tags[0])
	assert.NotContains(t, out, tags[59])
}

func TestGeneratePostContent_LongKhmerSlugStaysWithinLimits(t *testing.T) {
	g := testGenerator()
	a := model.Article{
		Title:       model.LocalizedText{EN: "Flood waters recede across the capital"},
		Description: model.LocalizedText{EN: strings.Repeat("Residents return home as the river falls. ", 20)},
		Slug:        strings.Repeat("ក", 30),
	}
	require.NoError(t, a.Validate())
	link := g.ArticleURL(a)
	require.Greater(t, utf8.RuneCountInString(link), 260)

	out := g.GeneratePostContent(a, model.PlatformTwitter)
	assert.LessOrEqual(t, ContentLength(model.PlatformTwitter, out, link), 280)
	assert.Contains(t, out, link)
	assert.True(t, strings.HasPrefix(out, "Flood waters recede"), out)
	assert.Contains(t, out, "#News")

	for _, p := range model.AllPlatforms {
		out := g.GeneratePostContent(a, p)
		assert.LessOrEqual(t, ContentLength(p, out, link), CharacterLimit(p), p)
	}
}

func TestGeneratePostContent_OversizedLinkFallsBackToSection(t *testing.T) {
	g := testGenerator()
	a := model.Article{
		Title: model.LocalizedText{EN: "Budget"},
		Slug:  strings.Repeat("a", 4100),
	}
	require.NoError(t, a.Validate())

	out := g.GeneratePostContent(a, model.PlatformTelegram)
	assert.LessOrEqual(t, utf8.RuneCountInString(out), CharacterLimit(model.PlatformTelegram))
	assert.Contains(t, out, "[Read more](https://news.example.com/news/)")
	assert.True(t, strings.HasPrefix(out, "*Budget*"), out)

	out = g.GeneratePostContent(a, model.PlatformTwitter)
	assert.Contains(t, out, g.ArticleURL(a))
	assert.LessOrEqual(t, ContentLength(model.PlatformTwitter, out, g.ArticleURL(a)), 280)
}

func TestContentLength(t *testing.T) {
	link := "https://news.example.com/news/" + strings.Repeat("x", 100)
	assert.Equal(t, 2+twitterURLWeight, ContentLength(model.PlatformTwitter, "hi"+link, link))
	assert.Equal(t, 8, ContentLength(model.PlatformTwitter, "ខ្មែ", ""))
	assert.Equal(t, 2+len(link), ContentLength(model.PlatformTelegram, "hi"+link, link))
}

func TestHashtags(t *testing.T) {
	g := testGenerator()
	a := model.Article{
		Title:    model.LocalizedText{EN: "Floods hit #Kampot again"},
		Slug:     "floods",
		Category: "weather",
		Hashtags: []string{"#kampot", "Relief"},
	}
	assert.Equal(t, []string{"#weather", "#Kampot", "#Relief", "#News", "#Cambodia"}, g.Hashtags(a))
}

func TestArticleURL(t *testing.T) {
	g := NewContentGenerator(ContentConfig{SiteURL: "https://site.test/", ArticlePath: "/articles/"})
	assert.Equal(t, "https://site.test/articles/a%20b", g.ArticleURL(model.Article{Slug: "a b"}))
}
