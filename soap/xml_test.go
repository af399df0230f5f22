package soap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSerializeRoundTrip(t *testing.T) {
	doc := []byte(`<?xml version="1.0"?><root a="1"><child>text</child><child>more</child></root>`)
	tree, err := Parse(doc)
	require.NoError(t, err)

	out, err := Serialize(tree)
	require.NoError(t, err)

	tree2, err := Parse(out)
	require.NoError(t, err)

	root, ok := tree.Get("root")
	require.True(t, ok)
	root2, ok := tree2.Get("root")
	require.True(t, ok)

	elem := root.(*Element)
	elem2 := root2.(*Element)
	assert.Equal(t, elem.Keys(), elem2.Keys())
	a, _ := elem.Attr("a")
	a2, _ := elem2.Attr("a")
	assert.Equal(t, a, a2)
}

func TestParseAttributesAndText(t *testing.T) {
	doc := []byte(`<a:Envelope xmlns:a="urn:test" a:id="7">hello</a:Envelope>`)
	tree, err := Parse(doc)
	require.NoError(t, err)

	val, ok := tree.Get("a:Envelope")
	require.True(t, ok)
	elem := val.(*Element)

	id, ok := elem.Attr("a:id")
	require.True(t, ok)
	assert.Equal(t, "7", id)

	assert.Equal(t, "hello", elem.Text())
}

func TestParseRepeatedSiblingsBecomeSequence(t *testing.T) {
	doc := []byte(`<root><item>1</item><item>2</item><item>3</item></root>`)
	tree, err := Parse(doc)
	require.NoError(t, err)

	rootVal, _ := tree.Get("root")
	root := rootVal.(*Element)
	itemsVal, ok := root.Get("item")
	require.True(t, ok)

	seq, ok := itemsVal.(Sequence)
	require.True(t, ok)
	assert.Len(t, seq, 3)
}

func TestParseMalformedXML(t *testing.T) {
	_, err := Parse([]byte(`<root><unclosed></root>`))
	require.Error(t, err)
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestEscapeTextAndAttr(t *testing.T) {
	doc := []byte(`<root a="&quot;q&quot; &amp; &lt;b&gt;">&lt;tag&gt; &amp; &apos;x&apos;</root>`)
	tree, err := Parse(doc)
	require.NoError(t, err)

	rootVal, _ := tree.Get("root")
	root := rootVal.(*Element)
	a, _ := root.Attr("a")
	assert.Equal(t, `"q" & <b>`, a)
	assert.Equal(t, `<tag> & 'x'`, root.Text())

	out, err := Serialize(tree)
	require.NoError(t, err)
	assert.Contains(t, string(out), "&amp;")
	assert.Contains(t, string(out), "&lt;")
}

func TestParseCDATA(t *testing.T) {
	doc := []byte(`<root><![CDATA[<not>&escaped</not>]]></root>`)
	tree, err := Parse(doc)
	require.NoError(t, err)

	rootVal, ok := tree.Get("root")
	require.True(t, ok)
	text, ok := TextOf(rootVal)
	require.True(t, ok)
	assert.Equal(t, "<not>&escaped</not>", text)
}
