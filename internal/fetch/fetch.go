package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Metadata is what a page says about itself.
type Metadata struct {
	Title       string
	Description string
}

// Fetcher retrieves page metadata for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Metadata, error)
}

const maxBody = 2 << 20

// Client fetches metadata with a single GET. There are no retries.
type Client struct {
	HTTP      *http.Client
	Timeout   time.Duration
	UserAgent string
}

// NewClient returns a Client with the given timeout and user agent.
func NewClient(timeout time.Duration, userAgent string) *Client {
	return &Client{
		HTTP:      &http.Client{},
		Timeout:   timeout,
		UserAgent: userAgent,
	}
}

// NormalizeURL adds an https scheme to URLs typed without one.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Contains(raw, "://") {
		return raw
	}
	return "https://" + raw
}

func (c *Client) Fetch(ctx context.Context, rawURL string) (Metadata, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, NormalizeURL(rawURL), nil)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to create request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Metadata{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	return Parse(io.LimitReader(resp.Body, maxBody))
}

// Parse extracts the title and description from an HTML document. The
// description comes from <meta name="description">, falling back to
// og:description.
func Parse(r io.Reader) (Metadata, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var md Metadata
	var ogDescription string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if md.Title == "" {
					md.Title = collapse(textOf(n))
				}
			case "meta":
				name := strings.ToLower(getAttr(n, "name"))
				prop := strings.ToLower(getAttr(n, "property"))
				content := collapse(getAttr(n, "content"))
				switch {
				case name == "description" && md.Description == "":
					md.Description = content
				case prop == "og:description" && ogDescription == "":
					ogDescription = content
				}
			case "svg":
				// <title> inside inline SVG is not the page title.
				return
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	if md.Description == "" {
		md.Description = ogDescription
	}
	return md, nil
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			sb.WriteString(child.Data)
		}
	}
	return sb.String()
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// collapse trims s and folds runs of whitespace into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
