package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/lysyi3m/rss-mirror/app/database"
)

// Generator renders mirrored posts of a feed as RSS 2.0 pointing at the
// local copies.
type Generator struct {
	baseURL  string
	version  string
	location *time.Location
}

func NewGenerator(baseURL, version string, location *time.Location) *Generator {
	if location == nil {
		location = time.UTC
	}
	return &Generator{
		baseURL:  strings.TrimRight(baseURL, "/"),
		version:  version,
		location: location,
	}
}

func (g *Generator) Run(feed database.Feed, posts []database.Post) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", cmp.Or(feed.Title, feed.URL), 4)
	g.writeElement(&buf, "link", feed.URL, 4)
	g.writeElement(&buf, "description", fmt.Sprintf("Mirrored feed from %s", feed.URL), 4)

	selfLink := fmt.Sprintf("%s/feeds/%d/rss", g.baseURL, feed.ID)
	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(selfLink)))

	lastBuildDate := time.Now().In(g.location)
	if len(posts) > 0 && posts[0].Timestamp > 0 {
		lastBuildDate = time.Unix(posts[0].Timestamp, 0).In(g.location)
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("RSS-Mirror/%s", g.version), 4)

	for _, post := range posts {
		g.writeItem(&buf, post)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, post database.Post) {
	buf.WriteString("    <item>\n")

	localLink := fmt.Sprintf("%s/post/%d", g.baseURL, post.ID)

	buf.WriteString("      <guid isPermaLink=\"true\">")
	xml.EscapeText(buf, []byte(localLink))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", post.Title, 6)
	g.writeElement(buf, "link", localLink, 6)
	g.writeElement(buf, "description", cmp.Or(post.Link, "No description available"), 6)

	if post.Data != nil && *post.Data != "" {
		buf.WriteString("      <content:encoded><![CDATA[")
		// A literal "]]>" would end the section early.
		buf.WriteString(strings.ReplaceAll(*post.Data, "]]>", "]]]]><![CDATA[>"))
		buf.WriteString("]]></content:encoded>\n")
	}

	if post.Timestamp > 0 {
		g.writeElement(buf, "pubDate", time.Unix(post.Timestamp, 0).In(g.location).Format(time.RFC1123Z), 6)
	}

	g.writeElement(buf, "author", post.Author, 6)

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}
