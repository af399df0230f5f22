package soap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanAttachmentsSubstitutesXopInclude(t *testing.T) {
	params := NewElement()
	params.SetOnce("fileName", "report.pdf")
	params.SetOnce("content", Attachment{
		ContentID:   "report@example.com",
		ContentType: "application/pdf",
		Data:        []byte("pdf-bytes"),
	})

	rewritten, found := scanAttachments(params, "example.com")
	require.Len(t, found, 1)
	assert.Equal(t, "report@example.com", found[0].ContentID)
	assert.Equal(t, []byte("pdf-bytes"), found[0].Data)

	elem := rewritten.(*Element)
	contentVal, ok := elem.Get("content")
	require.True(t, ok)
	wrapper := contentVal.(*Element)
	includeVal, ok := wrapper.Get("xop:Include")
	require.True(t, ok)
	include := includeVal.(*Element)
	href, _ := include.Attr("href")
	assert.Equal(t, "cid:report@example.com", href)
}

func TestScanAttachmentsAssignsDefaultContentID(t *testing.T) {
	params := NewElement()
	params.SetOnce("content", Attachment{ContentType: "application/octet-stream", Data: []byte("x")})

	_, found := scanAttachments(params, "host1")
	require.Len(t, found, 1)
	assert.Contains(t, found[0].ContentID, "@host1")
	assert.Equal(t, "binary", found[0].ContentTransferEncoding)
}

func TestScanAttachmentsNoneFound(t *testing.T) {
	params := NewElement()
	params.SetOnce("a", "1")

	rewritten, found := scanAttachments(params, "host1")
	assert.Empty(t, found)
	elem := rewritten.(*Element)
	val, _ := elem.Get("a")
	assert.Equal(t, "1", val)
}

func TestAttachmentSize(t *testing.T) {
	a := Attachment{Data: []byte("hello")}
	assert.Equal(t, 5, a.Size())
}

func TestEstimateMessageSizeIncludesAttachmentBytes(t *testing.T) {
	params := NewElement()
	params.SetOnce("fileName", "report.pdf")

	withoutAttachment, err := EstimateMessageSize("Upload", params, BuildOptions{Namespace: "urn:example"})
	require.NoError(t, err)

	params.SetOnce("content", Attachment{ContentType: "application/pdf", Data: []byte("0123456789")})
	withAttachment, err := EstimateMessageSize("Upload", params, BuildOptions{Namespace: "urn:example"})
	require.NoError(t, err)

	assert.Greater(t, withAttachment, withoutAttachment)
	assert.GreaterOrEqual(t, withAttachment-withoutAttachment, 10)
}

func TestScanAttachmentsWithinSequence(t *testing.T) {
	seq := Sequence{
		Attachment{ContentID: "a1", Data: []byte("1")},
		Attachment{ContentID: "a2", Data: []byte("2")},
	}
	rewritten, found := scanAttachments(seq, "host")
	require.Len(t, found, 2)
	outSeq := rewritten.(Sequence)
	require.Len(t, outSeq, 2)
	for _, item := range outSeq {
		_, ok := item.(*Element)
		assert.True(t, ok)
	}
}
