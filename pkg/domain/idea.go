package domain

import (
	"encoding/json"
	"strings"
)

// IdeaRequest はアイデアカード生成フォームの入力なのだ。
type IdeaRequest struct {
	BusinessArea string `json:"businessArea" validate:"required,notblank"`
	PainPoints   string `json:"painPoints" validate:"required,notblank"`
	Expectations string `json:"expectations" validate:"required,notblank"`
}

// Validate は 3 項目すべてが入力されていることを確認するのだ。
func (r IdeaRequest) Validate() error {
	return validateStruct(r)
}

// IdeaCard はバックエンドが提案する 1 枚のアイデアカードです。
type IdeaCard struct {
	SolutionTitle    string   `json:"solutionTitle"`
	Process          string   `json:"process"`
	Category         Role     `json:"category"`
	SolutionOverview string   `json:"solutionOverview"`
	HumanRole        string   `json:"humanRole"`
	ExpectedEffects  []string `json:"expectedEffects"`
	Keywords         []string `json:"keywords"`
	Technologies     []string `json:"technologies"`
}

// ParseIdeaCards はカード配列を検証しながらパースするのだ。
// 配列でない応答、未知のカテゴリ、タイトル欠落は ErrMalformedResponse なのだ。
func ParseIdeaCards(raw []byte) ([]IdeaCard, error) {
	body := extractJSON(raw, '[', ']')
	if len(body) == 0 {
		return nil, malformed("empty body")
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil || items == nil {
		return nil, malformed("idea response is not a card array (excerpt: %q)", truncate(string(body), 120))
	}

	cards := make([]IdeaCard, 0, len(items))
	for i, item := range items {
		var card IdeaCard
		if err := json.Unmarshal(item, &card); err != nil {
			return nil, malformed("card %d: %v", i+1, err)
		}
		if strings.TrimSpace(card.SolutionTitle) == "" {
			return nil, malformed("card %d: solutionTitle is empty", i+1)
		}
		if _, err := ParseRole(string(card.Category)); err != nil {
			return nil, malformed("card %d: unknown category %q", i+1, card.Category)
		}
		cards = append(cards, card)
	}
	return cards, nil
}
