package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// UnavailableRef replaces references to assets that could not be fetched.
const UnavailableRef = "/file/unavailable"

// FileRef returns the local reference for a stored file.
func FileRef(id int64) string {
	return fmt.Sprintf("/file/%d", id)
}

type AssetFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Response, error)
}

type Rewriter struct {
	fetcher AssetFetcher
}

func NewRewriter(fetcher AssetFetcher) *Rewriter {
	return &Rewriter{fetcher: fetcher}
}

type rewriteRun struct {
	ctx    context.Context
	base   *url.URL
	assets AssetStore
	memo   map[string]string // resolved URL -> local reference
	stored int
	failed int
}

// Run rewrites image and stylesheet references of page to local file
// references, storing every fetched asset through assets. The document is
// scanned once; markup other than the rewritten start tags is copied as is.
// Asset fetch failures leave UnavailableRef in place; storage errors abort.
func (r *Rewriter) Run(ctx context.Context, page []byte, contentType string, base *url.URL, assets AssetStore) (string, error) {
	run := &rewriteRun{
		ctx:    ctx,
		base:   base,
		assets: assets,
		memo:   make(map[string]string),
	}

	decoded := DecodeDocument(page, contentType)

	var out strings.Builder
	out.Grow(len(decoded))

	z := html.NewTokenizer(strings.NewReader(decoded))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				slog.Debug("Document rewritten", "base", base, "assets", run.stored, "unavailable", run.failed)
				return out.String(), nil
			}
			return "", fmt.Errorf("failed to tokenize document: %w", z.Err())

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if err := r.rewriteTag(run, &tok); err != nil {
				return "", err
			}
			out.WriteString(tok.String())

		default:
			out.Write(z.Raw())
		}
	}
}

func (r *Rewriter) rewriteTag(run *rewriteRun, tok *html.Token) error {
	var key string
	switch tok.Data {
	case "img":
		key = "src"
	case "link":
		if !isStylesheet(tok.Attr) {
			return nil
		}
		key = "href"
	default:
		return nil
	}

	for i := range tok.Attr {
		attr := &tok.Attr[i]
		if attr.Namespace != "" || attr.Key != key {
			continue
		}

		ref, err := r.localize(run, attr.Val)
		if err != nil {
			return err
		}
		attr.Val = ref
	}

	return nil
}

// localize returns the local reference for raw, fetching and storing the
// asset on first sight. References that cannot be fetched over HTTP are
// returned unchanged.
func (r *Rewriter) localize(run *rewriteRun, raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return raw, nil
	}

	ref, err := url.Parse(trimmed)
	if err != nil {
		return raw, nil
	}

	resolved := ref
	if run.base != nil {
		resolved = run.base.ResolveReference(ref)
	}
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return raw, nil
	}
	resolved.Fragment = ""

	target := resolved.String()
	if local, ok := run.memo[target]; ok {
		return local, nil
	}

	resp, err := r.fetcher.Fetch(run.ctx, target)
	if err != nil {
		if ctxErr := run.ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		slog.Warn("Asset unavailable", "url", target, "error", err)
		run.memo[target] = UnavailableRef
		run.failed++
		return UnavailableRef, nil
	}

	id, err := run.assets.Store(resp.Body, resp.ContentType)
	if err != nil {
		return "", fmt.Errorf("failed to store asset %s: %w", target, err)
	}

	local := FileRef(id)
	run.memo[target] = local
	run.stored++
	return local, nil
}

func isStylesheet(attrs []html.Attribute) bool {
	for _, attr := range attrs {
		if attr.Key != "rel" {
			continue
		}
		for _, token := range strings.Fields(attr.Val) {
			if strings.EqualFold(token, "stylesheet") {
				return true
			}
		}
	}
	return false
}

// DecodeDocument converts page to UTF-8. The encoding comes from a BOM, the
// Content-Type charset or a meta declaration; undeclared documents are read
// as UTF-8. Ill-formed sequences become U+FFFD.
func DecodeDocument(page []byte, contentType string) string {
	enc, name, certain := charset.DetermineEncoding(page, contentType)

	head := page
	if len(head) > 1024 {
		head = head[:1024]
	}
	if !certain && !bytes.Contains(bytes.ToLower(head), []byte("charset")) {
		enc, name = nil, "utf-8"
	}

	var decoder transform.Transformer
	if name == "utf-8" || enc == nil || enc == encoding.Nop {
		decoder = unicode.UTF8BOM.NewDecoder()
	} else {
		decoder = enc.NewDecoder()
	}

	decoded, _, err := transform.String(transform.Chain(decoder, runes.ReplaceIllFormed()), string(page))
	if err != nil {
		return strings.ToValidUTF8(string(page), "\uFFFD")
	}
	return decoded
}
