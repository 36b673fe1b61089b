package extractors

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/savagelysubtle/archivum/internal/extract"
)

// HTML pulls structure out of markup: the title, meta description and
// keywords, link and heading counts, and the visible text. It prefers
// already-loaded content over re-reading the file.
type HTML struct {
	// MaxContentBytes caps how much markup is read; zero means the
	// default.
	MaxContentBytes int64
}

func (HTML) Name() string    { return "html" }
func (HTML) Version() string { return "1.0" }

func (h HTML) Extract(ctx context.Context, path string) (extract.Fields, error) {
	data, err := readCapped(path, h.maxBytes())
	if err != nil {
		return nil, err
	}
	return h.parse(data)
}

func (h HTML) ExtractWithContent(ctx context.Context, path string, content []byte) (extract.Fields, error) {
	if int64(len(content)) > h.maxBytes() {
		content = content[:h.maxBytes()]
	}
	return h.parse(content)
}

func (h HTML) maxBytes() int64 {
	if h.MaxContentBytes > 0 {
		return h.MaxContentBytes
	}
	return defaultMaxContentBytes
}

func (h HTML) parse(data []byte) (extract.Fields, error) {
	var (
		title       strings.Builder
		text        strings.Builder
		keywords    []string
		description string
		links       int
		headings    int
		inTitle     bool
		skipText    bool
	)

	z := html.NewTokenizer(bytes.NewReader(data))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); err != io.EOF {
				return nil, fmt.Errorf("tokenizing html: %w", err)
			}
			break
		}

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch string(name) {
			case "title":
				inTitle = tt == html.StartTagToken
			case "script", "style":
				skipText = tt == html.StartTagToken
			case "a":
				links++
			case "h1", "h2", "h3", "h4", "h5", "h6":
				headings++
			case "meta":
				var metaName, metaContent string
				for hasAttr {
					var k, v []byte
					k, v, hasAttr = z.TagAttr()
					switch string(k) {
					case "name":
						metaName = strings.ToLower(string(v))
					case "content":
						metaContent = string(v)
					}
				}
				switch metaName {
				case "description":
					description = strings.TrimSpace(metaContent)
				case "keywords":
					for _, kw := range strings.Split(metaContent, ",") {
						if kw = strings.TrimSpace(kw); kw != "" {
							keywords = append(keywords, kw)
						}
					}
				}
			}
		case html.EndTagToken:
			switch name, _ := z.TagName(); string(name) {
			case "title":
				inTitle = false
			case "script", "style":
				skipText = false
			}
		case html.TextToken:
			switch {
			case inTitle:
				title.Write(z.Text())
			case !skipText:
				text.Write(z.Text())
				text.WriteByte(' ')
			}
		}
	}

	body := strings.Join(strings.Fields(text.String()), " ")
	preview := strings.TrimSpace(title.String())
	if preview == "" {
		preview = previewOf(body, defaultPreviewLen)
	}

	fields := extract.Fields{
		"preview":       preview,
		"content":       body,
		"content_type":  "webpage",
		"link_count":    links,
		"heading_count": headings,
	}
	if t := strings.TrimSpace(title.String()); t != "" {
		fields["title"] = t
	}
	if description != "" {
		fields["meta_description"] = description
	}
	if len(keywords) > 0 {
		fields["keywords"] = keywords
	}
	return fields, nil
}
