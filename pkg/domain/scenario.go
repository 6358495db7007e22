package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SegmentCount は 1 つのシナリオに含まれるカット数なのだ。常に 4。
const SegmentCount = 4

// Role はソリューションの役割分類です。ワイヤ上のラベルをそのまま値として持ちます。
type Role string

const (
	RoleAssistant Role = "Assistant" // supportive
	RoleAdvisor   Role = "Advisor"   // advisory
	RoleAgent     Role = "Agent"     // autonomous
)

// ParseRole はワイヤ上のラベルを Role に変換するのだ。大文字小文字の揺れも含めて、
// 3 つのラベル以外は契約違反として拒否するのだ。
func ParseRole(label string) (Role, error) {
	switch r := Role(label); r {
	case RoleAssistant, RoleAdvisor, RoleAgent:
		return r, nil
	}
	return "", malformed("unknown role %q", label)
}

// Classification は役割分類の内部名（supportive / advisory / autonomous）を返します。
func (r Role) Classification() string {
	switch r {
	case RoleAssistant:
		return "supportive"
	case RoleAdvisor:
		return "advisory"
	case RoleAgent:
		return "autonomous"
	}
	return ""
}

// NarrativeRequest はシナリオ生成フォームの入力なのだ。
// 空のカットヒントはバックエンドに補完してもらう合図になるのだ。
type NarrativeRequest struct {
	IdeaName     string `json:"ideaName" validate:"required,notblank"`
	IdeaOverview string `json:"ideaOverview" validate:"required,notblank"`
	Cut1         string `json:"cut1"`
	Cut2         string `json:"cut2"`
	Cut3         string `json:"cut3"`
	Cut4         string `json:"cut4"`
}

// NewNarrativeRequest は 0〜4 個のカットヒントからリクエストを組み立てるのだ。
func NewNarrativeRequest(name, overview string, hints ...string) (NarrativeRequest, error) {
	if len(hints) > SegmentCount {
		return NarrativeRequest{}, fmt.Errorf("%w: at most %d cut hints, got %d", ErrInvalidRequest, SegmentCount, len(hints))
	}
	var h [SegmentCount]string
	copy(h[:], hints)
	req := NarrativeRequest{
		IdeaName:     name,
		IdeaOverview: overview,
		Cut1:         h[0],
		Cut2:         h[1],
		Cut3:         h[2],
		Cut4:         h[3],
	}
	return req, req.Validate()
}

// Hints はカットヒントを位置順に返します。
func (r NarrativeRequest) Hints() [SegmentCount]string {
	return [SegmentCount]string{r.Cut1, r.Cut2, r.Cut3, r.Cut4}
}

// Validate は名前と概要が空でないことを確認するのだ。
func (r NarrativeRequest) Validate() error {
	return validateStruct(r)
}

// Segment はシナリオの 1 カットなのだ。
type Segment struct {
	Title       string   `json:"sceneName"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
}

// NarrativeResult はバックエンドが返す 4 コマシナリオを検証済みの形で保持します。
// Segments は位置順（0..3）で、ワイヤ上は cut1..cut4 に対応します。
type NarrativeResult struct {
	Role         Role
	IdeaName     string
	IdeaOverview string
	ChildRoles   []string
	Segments     [SegmentCount]Segment
}

// Segment は 1 始まりの位置でカットを取得するのだ。
func (n *NarrativeResult) Segment(pos int) (Segment, error) {
	if pos < 1 || pos > SegmentCount {
		return Segment{}, fmt.Errorf("segment position %d out of range 1..%d", pos, SegmentCount)
	}
	return n.Segments[pos-1], nil
}

// DisplayChildRoles はカード表示用に "Agent" の接尾辞を落とした子ロール名を返すのだ。
func (n *NarrativeResult) DisplayChildRoles() []string {
	out := make([]string, 0, len(n.ChildRoles))
	for _, r := range n.ChildRoles {
		out = append(out, strings.TrimSpace(strings.Replace(r, "Agent", "", 1)))
	}
	return out
}

// wireNarrative はワイヤ上の形なのだ。
type wireNarrative struct {
	Type         Role     `json:"type"`
	IdeaName     string   `json:"ideaName"`
	IdeaOverview string   `json:"ideaOverview"`
	ChildAgents  []string `json:"childAgents"`
	Cut1         Segment  `json:"cut1"`
	Cut2         Segment  `json:"cut2"`
	Cut3         Segment  `json:"cut3"`
	Cut4         Segment  `json:"cut4"`
}

// MarshalJSON はワイヤと同じ形（cut1..cut4）で書き出すので、ParseNarrativeResult で読み戻せるのだ。
func (n NarrativeResult) MarshalJSON() ([]byte, error) {
	child := n.ChildRoles
	if child == nil {
		child = []string{}
	}
	segs := n.Segments
	for i := range segs {
		if segs[i].Features == nil {
			segs[i].Features = []string{}
		}
	}
	return json.Marshal(wireNarrative{
		Type:         n.Role,
		IdeaName:     n.IdeaName,
		IdeaOverview: n.IdeaOverview,
		ChildAgents:  child,
		Cut1:         segs[0],
		Cut2:         segs[1],
		Cut3:         segs[2],
		Cut4:         segs[3],
	})
}
