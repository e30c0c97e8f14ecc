package message

import (
	"encoding/json"

	"github.com/c360/agentbridge/errors"
)

// ContentKind tags the payload variant carried by a message. The semantic
// mapper branches on these kinds, so payloads are a tagged union rather than
// an untyped blob.
type ContentKind string

const (
	// KindText is plain or formatted text.
	KindText ContentKind = "text"
	// KindImage is image content referenced by URI or carried inline.
	KindImage ContentKind = "image"
	// KindFile is an arbitrary file reference.
	KindFile ContentKind = "file"
	// KindCode is source code with a language tag.
	KindCode ContentKind = "code"
	// KindStructured is structured key-value data; the common case for
	// tool calls, task objects, and function descriptors.
	KindStructured ContentKind = "structured-data"
)

// MediaContent describes image and file payloads.
type MediaContent struct {
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	URI      string `json:"uri,omitempty"`
	Data     []byte `json:"data,omitempty"`
}

// CodeContent describes a source-code payload.
type CodeContent struct {
	Language string `json:"language,omitempty"`
	Source   string `json:"source"`
}

// Payload is the paradigm-specific body of a protocol message. Exactly one
// variant field is populated, selected by Kind.
type Payload struct {
	Kind       ContentKind    `json:"kind"`
	Text       string         `json:"text,omitempty"`
	Media      *MediaContent  `json:"media,omitempty"`
	Code       *CodeContent   `json:"code,omitempty"`
	Structured map[string]any `json:"structured,omitempty"`
}

// TextPayload creates a text payload.
func TextPayload(text string) Payload {
	return Payload{Kind: KindText, Text: text}
}

// CodePayload creates a code payload.
func CodePayload(language, source string) Payload {
	return Payload{Kind: KindCode, Code: &CodeContent{Language: language, Source: source}}
}

// FilePayload creates a file payload.
func FilePayload(name, mimeType, uri string) Payload {
	return Payload{Kind: KindFile, Media: &MediaContent{Name: name, MimeType: mimeType, URI: uri}}
}

// ImagePayload creates an image payload.
func ImagePayload(mimeType, uri string) Payload {
	return Payload{Kind: KindImage, Media: &MediaContent{MimeType: mimeType, URI: uri}}
}

// StructuredPayload creates a structured-data payload.
func StructuredPayload(data map[string]any) Payload {
	return Payload{Kind: KindStructured, Structured: data}
}

// Validate checks that the populated variant matches the declared kind.
func (p Payload) Validate() error {
	switch p.Kind {
	case KindText:
		return nil
	case KindImage, KindFile:
		if p.Media == nil {
			return errors.Wrap(errors.ErrInvalidPayload, "message", "Validate", "media payload missing content")
		}
	case KindCode:
		if p.Code == nil {
			return errors.Wrap(errors.ErrInvalidPayload, "message", "Validate", "code payload missing content")
		}
	case KindStructured:
		if p.Structured == nil {
			return errors.Wrap(errors.ErrInvalidPayload, "message", "Validate", "structured payload missing content")
		}
	default:
		return errors.Wrap(errors.ErrInvalidPayload, "message", "Validate", "unknown content kind")
	}
	return nil
}

// Field returns a top-level structured field and whether it exists.
// Non-structured payloads report no fields.
func (p Payload) Field(key string) (any, bool) {
	if p.Kind != KindStructured || p.Structured == nil {
		return nil, false
	}
	v, ok := p.Structured[key]
	return v, ok
}

// StringField returns a top-level structured field as a string.
func (p Payload) StringField(key string) (string, bool) {
	v, ok := p.Field(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// MapField returns a top-level structured field as a nested map.
func (p Payload) MapField(key string) (map[string]any, bool) {
	v, ok := p.Field(key)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

// SizeBytes returns the JSON-serialized size of the payload. Used by the
// data-preservation confidence factor and cache entry metadata.
func (p Payload) SizeBytes() int {
	data, err := json.Marshal(p)
	if err != nil {
		return 0
	}
	return len(data)
}

// clone returns a deep copy of the payload.
func (p Payload) clone() Payload {
	out := Payload{Kind: p.Kind, Text: p.Text}
	if p.Media != nil {
		m := *p.Media
		if p.Media.Data != nil {
			m.Data = append([]byte(nil), p.Media.Data...)
		}
		out.Media = &m
	}
	if p.Code != nil {
		c := *p.Code
		out.Code = &c
	}
	if p.Structured != nil {
		out.Structured = cloneMap(p.Structured)
	}
	return out
}

// cloneMap deep-copies a JSON-shaped map (maps, slices, scalars).
func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}
		return s
	default:
		return v
	}
}
