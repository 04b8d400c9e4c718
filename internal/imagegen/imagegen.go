package imagegen

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultEndpoint = "https://image.pollinations.ai/prompt/"
	DefaultWidth    = 1024
	DefaultHeight   = 1024
)

// Resolver derives a generated-image address from a text prompt. The image
// is rendered by the remote service on first request; nothing is fetched here.
type Resolver struct {
	Endpoint string
	Width    int
	Height   int
	NoLogo   bool
	Model    string
	Seed     int
}

// New returns a Resolver with the Pollinations defaults.
func New() Resolver {
	return Resolver{Endpoint: DefaultEndpoint, Width: DefaultWidth, Height: DefaultHeight, NoLogo: true}
}

// URL returns the image address for prompt, or "" when prompt is blank.
func (r Resolver) URL(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ""
	}
	endpoint := r.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	width, height := r.Width, r.Height
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	var b strings.Builder
	b.WriteString(endpoint)
	b.WriteString(escapeComponent(prompt))
	b.WriteString("?width=")
	b.WriteString(strconv.Itoa(width))
	b.WriteString("&height=")
	b.WriteString(strconv.Itoa(height))
	if r.NoLogo {
		b.WriteString("&nologo=true")
	}
	if r.Model != "" {
		b.WriteString("&model=")
		b.WriteString(url.QueryEscape(r.Model))
	}
	if r.Seed > 0 {
		b.WriteString("&seed=")
		b.WriteString(strconv.Itoa(r.Seed))
	}
	return b.String()
}

// escapeComponent matches encodeURIComponent: spaces become %20 and the
// characters !'()* stay literal.
func escapeComponent(s string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
	return componentUnescaper.Replace(escaped)
}

var componentUnescaper = strings.NewReplacer(
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)
