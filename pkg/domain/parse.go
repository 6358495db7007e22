package domain

import (
	"bytes"
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*\\S)\\s*```")
	cutKeyRegex    = regexp.MustCompile(`^cut(\d+)$`)
)

// ParseNarrativeResult はバックエンドの応答を検証しながら NarrativeResult に変換するのだ。
// 構造が少しでも違えば ErrMalformedResponse を返し、部分的な値は返さないのだ。
func ParseNarrativeResult(raw []byte) (*NarrativeResult, error) {
	body := extractJSON(raw, '{', '}')
	if len(body) == 0 {
		return nil, malformed("empty body")
	}
	return parseNarrativeObject(body)
}

// UnmarshalJSON は json.Unmarshal 経由でも同じ検証を通すためのものなのだ。
func (n *NarrativeResult) UnmarshalJSON(b []byte) error {
	parsed, err := parseNarrativeObject(b)
	if err != nil {
		return err
	}
	*n = *parsed
	return nil
}

func parseNarrativeObject(body []byte) (*NarrativeResult, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, malformed("narrative is not a JSON object (excerpt: %q)", truncate(string(body), 120))
	}

	roleLabel, err := requiredString(fields, "type")
	if err != nil {
		return nil, err
	}
	role, err := ParseRole(roleLabel)
	if err != nil {
		return nil, err
	}

	result := &NarrativeResult{Role: role}
	if result.IdeaName, err = requiredString(fields, "ideaName"); err != nil {
		return nil, err
	}
	if result.IdeaOverview, err = requiredString(fields, "ideaOverview"); err != nil {
		return nil, err
	}
	if result.ChildRoles, err = requiredStrings(fields, "childAgents"); err != nil {
		return nil, err
	}

	if err := checkSegmentKeys(fields); err != nil {
		return nil, err
	}
	for i := 0; i < SegmentCount; i++ {
		key := "cut" + strconv.Itoa(i+1)
		seg, err := parseSegment(fields[key], key)
		if err != nil {
			return nil, err
		}
		result.Segments[i] = seg
	}
	return result, nil
}

// checkSegmentKeys は cutN のキーが cut1..cut4 ちょうどであることを確認するのだ。
func checkSegmentKeys(fields map[string]json.RawMessage) error {
	var found []int
	for k := range fields {
		m := cutKeyRegex.FindStringSubmatch(k)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return malformed("invalid segment key %q", k)
		}
		found = append(found, n)
	}
	sort.Ints(found)
	if len(found) != SegmentCount {
		return malformed("expected exactly %d segments, got %d", SegmentCount, len(found))
	}
	for i, n := range found {
		if n != i+1 {
			return malformed("segment keys must be cut1..cut%d, got cut%d", SegmentCount, n)
		}
	}
	return nil
}

func parseSegment(raw json.RawMessage, key string) (Segment, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Segment{}, malformed("%s is not an object", key)
	}
	var (
		seg Segment
		err error
	)
	if seg.Title, err = requiredString(fields, "sceneName"); err != nil {
		return Segment{}, prefixed(key, err)
	}
	if strings.TrimSpace(seg.Title) == "" {
		return Segment{}, malformed("%s.sceneName is empty", key)
	}
	if seg.Description, err = requiredString(fields, "description"); err != nil {
		return Segment{}, prefixed(key, err)
	}
	if seg.Features, err = requiredStrings(fields, "features"); err != nil {
		return Segment{}, prefixed(key, err)
	}
	return seg, nil
}

func requiredString(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return "", malformed("missing field %q", key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", malformed("field %q is not a string", key)
	}
	return s, nil
}

func requiredStrings(fields map[string]json.RawMessage, key string) ([]string, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return nil, malformed("missing field %q", key)
	}
	var ss []string
	if err := json.Unmarshal(raw, &ss); err != nil {
		return nil, malformed("field %q is not a list of strings", key)
	}
	if ss == nil {
		ss = []string{}
	}
	return ss, nil
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func prefixed(key string, err error) error {
	return malformed("%s: %s", key, strings.TrimPrefix(err.Error(), ErrMalformedResponse.Error()+": "))
}

// extractJSON は LLM 由来の応答からコードブロックや前後の文章を剥がすのだ。
// open/close は対象のトップレベルの括弧（オブジェクトなら '{' '}'）。
func extractJSON(raw []byte, open, close byte) []byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] == open {
		return trimmed
	}
	if m := jsonBlockRegex.FindSubmatch(trimmed); len(m) > 1 {
		return bytes.TrimSpace(m[1])
	}
	first := bytes.IndexByte(trimmed, open)
	last := bytes.LastIndexByte(trimmed, close)
	if first != -1 && last > first {
		return trimmed[first : last+1]
	}
	return trimmed
}

// truncate は maxLen 文字（rune 単位）で切り詰めるのだ。日本語の途中で切らないためなのだ。
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
