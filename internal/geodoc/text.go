package geodoc

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var xmlEncodingDecl = regexp.MustCompile(`^\s*<\?xml[^>]*encoding\s*=\s*["']([A-Za-z0-9._:-]+)["']`)

// decodeText turns uploaded bytes into UTF-8 text.
// County exports arrive with UTF-8 BOMs, as UTF-16 from Windows tools, or in
// legacy single-byte encodings; declared is the encoding named by the document
// itself (an XML declaration), if any.
func decodeText(data []byte, declared string) (string, error) {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		data = data[3:]
		if !utf8.Valid(data) {
			return "", fmt.Errorf("invalid UTF-8 after byte order mark")
		}
		return string(data), nil
	}

	if len(data) >= 2 && ((data[0] == 0xFF && data[1] == 0xFE) || (data[0] == 0xFE && data[1] == 0xFF)) {
		decoder := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		decoded, _, err := transform.Bytes(decoder, data)
		if err != nil {
			return "", fmt.Errorf("failed to decode UTF-16 text: %w", err)
		}
		return string(decoded), nil
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	if declared != "" {
		if enc, _ := charset.Lookup(declared); enc != nil {
			decoded, _, err := transform.Bytes(enc.NewDecoder(), data)
			if err == nil {
				return string(decoded), nil
			}
		}
	}

	decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("failed to decode text: %w", err)
	}
	return string(decoded), nil
}

// declaredXMLEncoding returns the encoding named in a leading XML declaration.
func declaredXMLEncoding(data []byte) string {
	head := data
	if len(head) > 256 {
		head = head[:256]
	}
	m := xmlEncodingDecl.FindSubmatch(head)
	if m == nil {
		return ""
	}
	return string(m[1])
}
