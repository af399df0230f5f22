package soap

import (
	"bytes"
	"fmt"
	"mime"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// MIMEPart is one part of a parsed multipart/related body: its headers
// (names lowercased for lookup, values preserved verbatim) and its raw
// content bytes.
type MIMEPart struct {
	Headers map[string]string
	Content []byte
}

// ErrNotMultipartRelated is returned by ValidateContentType when the
// media type isn't multipart/related.
type ErrNotMultipartRelated struct{ ContentType string }

func (e *ErrNotMultipartRelated) Error() string {
	return fmt.Sprintf("soap: not multipart/related: %q", e.ContentType)
}

// ErrMissingBoundary is returned when a Content-Type header has no
// boundary= parameter.
type ErrMissingBoundary struct{ ContentType string }

func (e *ErrMissingBoundary) Error() string {
	return fmt.Sprintf("soap: content-type missing boundary parameter: %q", e.ContentType)
}

// GenerateBoundary returns a fresh v4-UUID-derived multipart boundary
// with the "uuid:" prefix, per spec.md §4.2.
func GenerateBoundary() string {
	return "uuid:" + uuid.NewString()
}

// ExtractBoundary extracts the boundary= parameter from a Content-Type
// header, accepting both quoted and unquoted forms.
func ExtractBoundary(contentType string) (string, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// mime.ParseMediaType is strict about quoting; fall back to a
		// permissive scan for an unquoted boundary= parameter.
		if b, ok := scanUnquotedParam(contentType, "boundary"); ok {
			return b, nil
		}
		return "", &ErrMissingBoundary{ContentType: contentType}
	}
	b, ok := params["boundary"]
	if !ok || b == "" {
		if b, ok := scanUnquotedParam(contentType, "boundary"); ok {
			return b, nil
		}
		return "", &ErrMissingBoundary{ContentType: contentType}
	}
	return b, nil
}

func scanUnquotedParam(header, name string) (string, bool) {
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		prefix := name + "="
		if strings.HasPrefix(part, prefix) {
			v := strings.TrimPrefix(part, prefix)
			v = strings.Trim(v, `"`)
			return v, v != ""
		}
	}
	return "", false
}

// ValidateContentType requires both the multipart/related media type and
// a boundary= parameter to be present.
func ValidateContentType(contentType string) error {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.EqualFold(mediaType, "multipart/related") {
		return &ErrNotMultipartRelated{ContentType: contentType}
	}
	if _, err := ExtractBoundary(contentType); err != nil {
		return err
	}
	return nil
}

// mtomContentType renders the Content-Type header for an MTOM message,
// matching the exact parameter set and order required by spec.md §4.2.
func mtomContentType(boundary, rootCID string) string {
	return fmt.Sprintf(`multipart/related; boundary="%s"; type="application/xop+xml"; start="%s"; start-info="text/xml"`,
		boundary, rootCID)
}

// BuildMTOM assembles a multipart/related MTOM message: a root XOP part
// carrying envelopeXML followed by one part per attachment, in order.
// It returns the Content-Type header value and the full multipart body.
func BuildMTOM(envelopeXML []byte, attachments []Attachment) (contentType string, body []byte, err error) {
	boundary := GenerateBoundary()
	rootCID := "root-" + uuid.NewString()

	var buf bytes.Buffer
	writePartHeader(&buf, boundary, map[string]string{
		"Content-Type":              `application/xop+xml; charset=UTF-8; type="text/xml"`,
		"Content-Transfer-Encoding": "8bit",
		"Content-ID":                "<" + rootCID + ">",
	})
	buf.Write(envelopeXML)
	buf.WriteString("\r\n")

	for _, a := range attachments {
		headers := map[string]string{
			"Content-Type":              a.ContentType,
			"Content-Transfer-Encoding": nonEmpty(a.ContentTransferEncoding, "binary"),
			"Content-ID":                "<" + a.ContentID + ">",
		}
		writePartHeader(&buf, boundary, headers)
		buf.Write(a.Data)
		buf.WriteString("\r\n")
	}

	buf.WriteString("--" + boundary + "--\r\n")

	return mtomContentType(boundary, "<"+rootCID+">"), buf.Bytes(), nil
}

func writePartHeader(buf *bytes.Buffer, boundary string, headers map[string]string) {
	buf.WriteString("--" + boundary + "\r\n")
	names := make([]string, 0, len(headers))
	for k := range headers {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		buf.WriteString(k)
		buf.WriteString(": ")
		buf.WriteString(headers[k])
		buf.WriteString("\r\n")
	}
	buf.WriteString("\r\n")
}

// ParseMultipart splits a multipart/related body into its root document
// bytes and the ordered list of remaining parts. Binary content is copied
// unmodified: the only recognized frame boundary is the exact byte
// sequence CRLF "--" boundary, so null bytes and boundary-like substrings
// embedded in part content never trigger a false split.
func ParseMultipart(contentType string, body []byte) (root []byte, parts []MIMEPart, err error) {
	boundary, err := ExtractBoundary(contentType)
	if err != nil {
		return nil, nil, err
	}

	delim := []byte("--" + boundary)
	rawParts, err := splitParts(body, delim)
	if err != nil {
		return nil, nil, err
	}

	var all []MIMEPart
	for _, raw := range rawParts {
		headers, content := splitHeaderBody(raw)
		all = append(all, MIMEPart{Headers: parseHeaders(headers), Content: content})
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("soap: multipart body has no parts")
	}
	return all[0].Content, all[1:], nil
}

// splitParts locates each part's raw bytes (header block + content),
// delimited by "\r\n--boundary\r\n" ... "\r\n--boundary--".
func splitParts(body []byte, delim []byte) ([][]byte, error) {
	// The first part is preceded by the delimiter without a leading
	// CRLF (it begins the message); subsequent ones are preceded by
	// CRLF+delim.
	start := bytes.Index(body, delim)
	if start < 0 {
		return nil, fmt.Errorf("soap: opening boundary not found")
	}
	pos := start + len(delim)
	pos = skipLineEnding(body, pos)

	var out [][]byte
	for {
		next, isFinal, nextPos, ok := findNextBoundary(body, pos, delim)
		if !ok {
			return nil, fmt.Errorf("soap: unterminated multipart body")
		}
		out = append(out, body[pos:next])
		if isFinal {
			break
		}
		pos = nextPos
	}
	return out, nil
}

// findNextBoundary finds the next occurrence of CRLF+delim at or after
// pos, returning the index where the preceding content ends, whether it
// is the final ("--" suffixed) boundary, and the position just after the
// boundary line (for the next part), skipping its line ending.
func findNextBoundary(body []byte, pos int, delim []byte) (contentEnd int, isFinal bool, nextPos int, ok bool) {
	marker := append([]byte("\r\n"), delim...)
	idx := bytes.Index(body[pos:], marker)
	if idx < 0 {
		return 0, false, 0, false
	}
	contentEnd = pos + idx
	afterDelim := contentEnd + len(marker)
	if afterDelim+1 < len(body) && body[afterDelim] == '-' && body[afterDelim+1] == '-' {
		return contentEnd, true, 0, true
	}
	nextPos = skipLineEnding(body, afterDelim)
	return contentEnd, false, nextPos, true
}

func skipLineEnding(body []byte, pos int) int {
	if pos+1 < len(body) && body[pos] == '\r' && body[pos+1] == '\n' {
		return pos + 2
	}
	if pos < len(body) && body[pos] == '\n' {
		return pos + 1
	}
	return pos
}

// splitHeaderBody splits a single part's raw bytes at the first CRLF CRLF
// (blank line) boundary between headers and content.
func splitHeaderBody(raw []byte) (headers, content []byte) {
	sep := []byte("\r\n\r\n")
	idx := bytes.Index(raw, sep)
	if idx < 0 {
		// No blank line: treat the whole thing as headerless content,
		// which should not normally occur in a well-formed part.
		return nil, raw
	}
	return raw[:idx], raw[idx+len(sep):]
}

// ParseHeaders parses a header block into a lowercase-keyed map, folding
// continuation lines (lines starting with whitespace) into the previous
// header's value.
func ParseHeaders(block []byte) map[string]string {
	return parseHeaders(block)
}

func parseHeaders(block []byte) map[string]string {
	headers := map[string]string{}
	if len(block) == 0 {
		return headers
	}
	lines := strings.Split(strings.ReplaceAll(string(block), "\r\n", "\n"), "\n")
	var lastKey string
	for _, line := range lines {
		if line == "" {
			continue
		}
		if (line[0] == ' ' || line[0] == '\t') && lastKey != "" {
			headers[lastKey] = headers[lastKey] + " " + strings.TrimSpace(line)
			continue
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:idx]))
		val := strings.TrimSpace(line[idx+1:])
		headers[key] = val
		lastKey = key
	}
	return headers
}
