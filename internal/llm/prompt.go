package llm

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	trailingParens = regexp.MustCompile(`\)+$`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	codeFence      = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
)

type promptOptions struct {
	language     string
	captionLimit int
}

func clipText(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 || len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

func buildSystemPrompt(opts promptOptions) string {
	return fmt.Sprintf(`You are an experienced content manager. Write an informative, factual and concise Telegram post in %s based on the provided text. The post must not exceed %d characters.
Also write a short, precise prompt in English for generating an image that matches the topic of the post.
Use emoji and formatting sparingly, only where they add meaning, and avoid excessive special characters and hashtags.

Respond with JSON only:
{
  "post": "Post text",
  "short_image_prompt": "Short image prompt in English",
  "hashtags": ["tag1", "tag2", "tag3"]
}`, opts.language, opts.captionLimit)
}

// jsonCandidates yields the raw reply, its fenced body and the outermost
// brace-delimited substring, in that order.
func jsonCandidates(raw string) []string {
	raw = strings.TrimSpace(raw)
	candidates := []string{raw}
	if m := codeFence.FindStringSubmatch(raw); len(m) == 2 {
		candidates = append(candidates, m[1])
	}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			candidates = append(candidates, raw[start:end+1])
		}
	}
	return candidates
}

// parsePost decodes the model reply and applies the caption clean-up:
// trailing ")" runs are dropped, a final period is added when the text lacks
// terminal punctuation and hashtags are appended after a blank line.
func parsePost(raw string) (Post, error) {
	if strings.TrimSpace(raw) == "" {
		return Post{}, ErrEmptyResponse
	}
	for _, candidate := range jsonCandidates(raw) {
		if !gjson.Valid(candidate) {
			continue
		}
		doc := gjson.Parse(candidate)
		if !doc.IsObject() {
			continue
		}
		body := doc.Get("post")
		if body.Type != gjson.String || strings.TrimSpace(body.String()) == "" {
			return Post{}, fmt.Errorf("%w: missing post", ErrMalformedResponse)
		}

		prompt := doc.Get("short_image_prompt")
		if !prompt.Exists() {
			prompt = doc.Get("image_prompt")
		}
		var tags []string
		doc.Get("hashtags").ForEach(func(_, value gjson.Result) bool {
			tag := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(value.String()), "#"))
			if tag != "" {
				tags = append(tags, whitespaceRe.ReplaceAllString(tag, "_"))
			}
			return true
		})

		return Post{
			Caption:     finishCaption(body.String(), tags),
			ImagePrompt: strings.TrimSpace(prompt.String()),
			Hashtags:    tags,
		}, nil
	}
	return Post{}, ErrMalformedResponse
}

func finishCaption(post string, tags []string) string {
	post = strings.TrimSpace(trailingParens.ReplaceAllString(strings.TrimSpace(post), ""))
	if !strings.HasSuffix(post, ".") && !strings.HasSuffix(post, "!") && !strings.HasSuffix(post, "?") {
		post += "."
	}
	if len(tags) == 0 {
		return post
	}
	formatted := make([]string, len(tags))
	for i, tag := range tags {
		formatted[i] = "#" + tag
	}
	return post + "\n\n" + strings.Join(formatted, " ")
}
