package feed

import (
	"net/url"
	"strings"
	"testing"
)

const articlePage = `<!DOCTYPE html>
<html>
<head>
	<title>Test Article</title>
</head>
<body>
	<header>
		<h1>Site Header</h1>
		<nav>Navigation</nav>
	</header>
	<main>
		<article>
			<h1>Main Article Title</h1>
			<p>This is the main content of the article. It contains several paragraphs of meaningful text that should be extracted by the readability algorithm.</p>
			<p>This is another paragraph with more content. The readability algorithm should identify this as the main content area and extract it properly.</p>
			<p>Here is some more substantial content to ensure we meet the character threshold. <img src="images/chart.png" alt="chart"> This paragraph adds more context and information that would be valuable to readers.</p>
		</article>
	</main>
	<footer>
		<p>Copyright 2024</p>
	</footer>
</body>
</html>`

func TestContentExtractor_ValidHTML(t *testing.T) {
	extractor := NewContentExtractor()

	result, err := extractor.Run([]byte(articlePage), nil)

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(result, "main content of the article") {
		t.Errorf("Expected extracted content to contain main article text")
	}

	if strings.Contains(result, "Copyright 2024") {
		t.Errorf("Expected extracted content to exclude footer")
	}
}

func TestContentExtractor_ResolvesAgainstPageURL(t *testing.T) {
	extractor := NewContentExtractor()
	pageURL, _ := url.Parse("https://example.com/blog/post.html")

	result, err := extractor.Run([]byte(articlePage), pageURL)

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(result, "https://example.com/blog/images/chart.png") {
		t.Errorf("Expected image reference to be absolute, got: %s", result)
	}
}

func TestContentExtractor_EmptyData(t *testing.T) {
	extractor := NewContentExtractor()

	_, err := extractor.Run(nil, nil)

	if err == nil {
		t.Error("Expected error for empty data")
	}
}
