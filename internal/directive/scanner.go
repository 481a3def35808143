// Package directive parses the bracketed JSON fragments embedded in free
// text: uploaded-image lists attached to user messages and UI control
// markers consumed by renderers. Fragments may contain nested objects and
// arrays, so spans are matched by depth counting rather than regexes.
package directive

import (
	"encoding/json"
	"strings"
)

// Kind distinguishes the recognized directive shapes.
type Kind string

const (
	KindUploadedImages Kind = "uploaded_images"
	KindUIControl      Kind = "ui_control"
)

// Directive is one typed fragment lifted out of a text.
type Directive struct {
	Kind      Kind
	ImageURLs []string
	Control   string
	Raw       json.RawMessage
}

type uploadedImagesMarker struct {
	UploadedImages []string `json:"uploadedImages"`
}

type uiControlMarker struct {
	UIControl string `json:"uiControl"`
}

// ObjectSpan locates the first balanced {...} span in s starting at or after
// offset. It walks the text counting brace depth and skipping string
// literals, so nested objects and arrays inside the span do not truncate the
// match. Returns ok=false when no balanced span exists.
func ObjectSpan(s string, offset int) (start, end int, ok bool) {
	start = strings.IndexByte(s[offset:], '{')
	if start < 0 {
		return 0, 0, false
	}
	start += offset

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return start, i + 1, true
			}
		}
	}
	return 0, 0, false
}

// Scan extracts every recognized directive from text. Recognized fragments
// are removed from the returned clean text; anything that does not parse or
// carries no known marker key stays in place verbatim.
func Scan(text string) (string, []Directive) {
	var (
		dirs    []Directive
		builder strings.Builder
		cursor  int
	)
	for cursor < len(text) {
		start, end, ok := ObjectSpan(text, cursor)
		if !ok {
			break
		}
		span := text[start:end]
		d, recognized, validJSON := classify(span)
		if recognized {
			builder.WriteString(text[cursor:start])
			dirs = append(dirs, d)
			cursor = end
			continue
		}
		if validJSON {
			// Unrecognized but well-formed JSON stays in place as a
			// unit; rescanning inside it would lift nested markers
			// out of their parent object.
			builder.WriteString(text[cursor:end])
			cursor = end
			continue
		}
		builder.WriteString(text[cursor : start+1])
		cursor = start + 1
	}
	builder.WriteString(text[cursor:])
	clean := strings.TrimSpace(collapseSpaces(builder.String()))
	return clean, dirs
}

func classify(span string) (d Directive, recognized, validJSON bool) {
	raw := json.RawMessage(span)

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Directive{}, false, false
	}

	var imgs uploadedImagesMarker
	if err := json.Unmarshal(raw, &imgs); err == nil && imgs.UploadedImages != nil {
		return Directive{Kind: KindUploadedImages, ImageURLs: imgs.UploadedImages, Raw: raw}, true, true
	}

	var ctrl uiControlMarker
	if err := json.Unmarshal(raw, &ctrl); err == nil && ctrl.UIControl != "" {
		return Directive{Kind: KindUIControl, Control: ctrl.UIControl, Raw: raw}, true, true
	}

	return Directive{}, false, true
}

// EmbedUploadedImages appends an uploaded-images marker to a user message so
// the model can reference the files by URL.
func EmbedUploadedImages(text string, urls []string) string {
	if len(urls) == 0 {
		return text
	}
	marker, err := json.Marshal(uploadedImagesMarker{UploadedImages: urls})
	if err != nil {
		return text
	}
	if strings.TrimSpace(text) == "" {
		return string(marker)
	}
	return text + "\n" + string(marker)
}

// collapseSpaces trims the doubled spaces left behind where a fragment was
// removed mid-sentence.
func collapseSpaces(s string) string {
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return s
}
