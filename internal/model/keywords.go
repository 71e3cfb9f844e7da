package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// KeywordHit records whether a single keyword was found.
type KeywordHit struct {
	Keyword string
	Hit     bool
}

// KeywordHits is an insertion-ordered keyword→hit map. It encodes as a JSON object
// and keeps the order of the question's keyword list, which feedback and resource
// ranking depend on.
type KeywordHits []KeywordHit

// Set records hit for keyword, overwriting an existing entry in place.
func (h KeywordHits) Set(keyword string, hit bool) KeywordHits {
	for i := range h {
		if h[i].Keyword == keyword {
			h[i].Hit = hit
			return h
		}
	}
	return append(h, KeywordHit{Keyword: keyword, Hit: hit})
}

// Hit reports whether keyword is present and matched.
func (h KeywordHits) Hit(keyword string) bool {
	for _, kh := range h {
		if kh.Keyword == keyword {
			return kh.Hit
		}
	}
	return false
}

// Matched returns the number of matched keywords.
func (h KeywordHits) Matched() int {
	n := 0
	for _, kh := range h {
		if kh.Hit {
			n++
		}
	}
	return n
}

// Missing returns the unmatched keywords in order.
func (h KeywordHits) Missing() []string {
	var out []string
	for _, kh := range h {
		if !kh.Hit {
			out = append(out, kh.Keyword)
		}
	}
	return out
}

// Keywords returns every keyword in order.
func (h KeywordHits) Keywords() []string {
	out := make([]string, 0, len(h))
	for _, kh := range h {
		out = append(out, kh.Keyword)
	}
	return out
}

// Coverage returns the matched fraction and false when there are no keywords.
func (h KeywordHits) Coverage() (float64, bool) {
	if len(h) == 0 {
		return 0, false
	}
	return float64(h.Matched()) / float64(len(h)), true
}

// MarshalJSON encodes the hits as an ordered JSON object.
func (h KeywordHits) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kh := range h {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(kh.Keyword)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatBool(kh.Hit))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping key order.
func (h *KeywordHits) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*h = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("keyword hits: expected object, got %v", tok)
	}
	out := KeywordHits{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("keyword hits: expected string key, got %v", tok)
		}
		var hit bool
		if err := dec.Decode(&hit); err != nil {
			return fmt.Errorf("keyword hits: value for %q: %w", key, err)
		}
		out = out.Set(key, hit)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*h = out
	return nil
}
