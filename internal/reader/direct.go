package reader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
)

const (
	defaultUserAgent = "repost/1.0 (+https://github.com/csheth/repost)"
	boilerplate      = "script, style, noscript, template, iframe, svg, form, nav, header, footer, aside, [role=navigation], [aria-hidden=true]"
)

var (
	extraneousWhitespace = regexp.MustCompile(`\s+`)
	blankLines           = regexp.MustCompile(`\n{3,}`)
)

// DirectClient downloads the page itself and extracts readable text from
// HTML, PDF or plain text responses.
type DirectClient struct {
	UserAgent  string
	HTTPClient *http.Client
}

// Fetch implements Fetcher.
func (c *DirectClient) Fetch(ctx context.Context, rawURL string) (string, error) {
	target, err := validateURL(rawURL)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	ua := c.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,text/plain;q=0.8,*/*;q=0.5")

	resp, err := pickHTTPClient(c.HTTPClient, 0).Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorSnippetBytes))
		return "", &StatusError{Source: "direct fetch", Status: resp.Status, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch {
	case mediaType == "application/pdf" || bytes.HasPrefix(body, []byte("%PDF-")):
		return pdfText(body)
	case mediaType == "text/html" || mediaType == "application/xhtml+xml" || (mediaType == "" && looksLikeHTML(body)):
		return htmlToMarkdown(body, resp.Request.URL)
	default:
		return strings.TrimSpace(string(body)), nil
	}
}

func looksLikeHTML(body []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(body[:min(len(body), 512)]))
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.Contains(head, []byte("<html"))
}

// htmlToMarkdown drops page chrome, keeps the most specific content
// container and converts it to markdown.
func htmlToMarkdown(body []byte, base *url.URL) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	title := normalizeWhitespace(doc.Find("title").First().Text())
	doc.Find(boilerplate).Remove()

	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("main, [role=main]").First()
	}
	if root.Length() == 0 {
		root = doc.Find("body").First()
	}
	html, err := goquery.OuterHtml(root)
	if err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}

	domain := ""
	if base != nil {
		domain = base.Scheme + "://" + base.Host
	}
	converter := md.NewConverter(domain, true, nil)
	markdown, err := converter.ConvertString(html)
	if err != nil || strings.TrimSpace(markdown) == "" {
		markdown = normalizeWhitespace(root.Text())
	}
	markdown = strings.TrimSpace(blankLines.ReplaceAllString(markdown, "\n\n"))
	if title != "" && markdown != "" && !strings.Contains(firstLine(markdown), title) {
		markdown = "# " + title + "\n\n" + markdown
	}
	return markdown, nil
}

func pdfText(body []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}
	var builder strings.Builder
	if _, err := io.Copy(&builder, content); err != nil {
		return "", err
	}
	return normalizeWhitespace(builder.String()), nil
}

func normalizeWhitespace(s string) string {
	return extraneousWhitespace.ReplaceAllString(strings.TrimSpace(s), " ")
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
