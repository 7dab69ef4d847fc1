package dataintegrity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBasicPage(t *testing.T) {
	html := `<html><head><title>Widgets</title></head><body>
		<h1>Our Widgets</h1>
		<p>Buy the best widgets online.</p>
		<table><thead><tr><th>Name</th><th>Price</th></tr></thead>
			<tbody><tr><td>Widget A</td><td>$10</td></tr></tbody></table>
		<div class="price" data-price="10.00">$10.00</div>
		<a href="/contact">Contact</a>
		<script>console.log("ignored")</script>
		<style>.hidden { display: none }</style>
		<div style="display:none">invisible text</div>
	</body></html>`

	ex, err := Extract(html)
	require.NoError(t, err)

	assert.Equal(t, "Widgets", ex.Metadata.Title)
	require.Len(t, ex.Headings, 1)
	assert.Equal(t, "Our Widgets", ex.Headings[0].Text)
	require.Len(t, ex.Paragraphs, 1)
	assert.Contains(t, ex.VisibleText, "Buy the best widgets online")
	assert.NotContains(t, ex.VisibleText, "invisible text")
	assert.NotContains(t, ex.VisibleText, "console.log")

	require.Len(t, ex.Tables, 1)
	assert.Equal(t, []string{"Name", "Price"}, ex.Tables[0].Headers)
	require.Len(t, ex.Tables[0].Rows, 1)

	require.Len(t, ex.Pricing, 1)
	assert.InDelta(t, 10.00, ex.Pricing[0].Amount, 0.001)
}

func TestExtractJSONLD(t *testing.T) {
	html := `<html><body>
		<script type="application/ld+json">{"@type":"Product","name":"Widget","price":"9.99"}</script>
		<script type="application/ld+json">not valid json</script>
	</body></html>`

	ex, err := Extract(html)
	require.NoError(t, err)
	require.Len(t, ex.StructuredJSON, 2, "both script bodies are captured raw, even the invalid one")
}

func TestExtractPriceNormalizesCurrency(t *testing.T) {
	html := `<html><body><div class="price" data-price="1">$1,234.56</div></body></html>`

	ex, err := Extract(html)
	require.NoError(t, err)
	require.Len(t, ex.Pricing, 1)
	assert.Equal(t, "USD", ex.Pricing[0].Currency)
	assert.InDelta(t, 1234.56, ex.Pricing[0].Amount, 0.01)
}
