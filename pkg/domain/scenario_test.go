package domain

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

const validNarrativeJSON = `{
	"type": "Agent",
	"ideaName": "設備予知保全AI",
	"ideaOverview": "センサーデータから故障を予測するのだ",
	"childAgents": ["Monitoring Agent", "Planning Agent", "Report Agent"],
	"cut1": {"sceneName": "目標設定", "description": "担当者が点検目標を入力する", "features": ["入力", "目標", "計画"]},
	"cut2": {"sceneName": "解析", "description": "AIがログを解析する", "features": ["解析", "予測", "異常検知"]},
	"cut3": {"sceneName": "活用", "description": "結果を保全計画に反映する", "features": ["計画", "共有", "通知"]},
	"cut4": {"sceneName": "学習", "description": "成果を確認して学習する", "features": ["評価", "学習", "改善"]}
}`

func mutateNarrative(t *testing.T, mutate func(m map[string]any)) []byte {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(validNarrativeJSON), &m); err != nil {
		t.Fatalf("テスト用JSONのパースに失敗したのだ: %v", err)
	}
	mutate(m)
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("テスト用JSONの生成に失敗したのだ: %v", err)
	}
	return b
}

func TestParseNarrativeResult(t *testing.T) {
	t.Run("正しい4カットの応答をパースできるのだ", func(t *testing.T) {
		res, err := ParseNarrativeResult([]byte(validNarrativeJSON))
		if err != nil {
			t.Fatalf("予期しないエラー: %v", err)
		}
		if res.Role != RoleAgent || res.Role.Classification() != "autonomous" {
			t.Errorf("ロールが違うのだ: %q (%s)", res.Role, res.Role.Classification())
		}
		if res.IdeaName != "設備予知保全AI" {
			t.Errorf("ideaName が違うのだ: %s", res.IdeaName)
		}
		if len(res.ChildRoles) != 3 {
			t.Errorf("childAgents の数が違うのだ: %d", len(res.ChildRoles))
		}
		wantTitles := []string{"目標設定", "解析", "活用", "学習"}
		for i, want := range wantTitles {
			if res.Segments[i].Title != want {
				t.Errorf("カット %d のタイトル: 期待 %q, 実際 %q", i, want, res.Segments[i].Title)
			}
			seg, err := res.Segment(i + 1)
			if err != nil || seg.Title != want {
				t.Errorf("位置 %d でカットを取得できないのだ: %v", i+1, err)
			}
		}
	})

	t.Run("コードブロックに包まれた応答も受け付けるのだ", func(t *testing.T) {
		raw := "以下がシナリオです。\n```json\n" + validNarrativeJSON + "\n```\n"
		if _, err := ParseNarrativeResult([]byte(raw)); err != nil {
			t.Fatalf("予期しないエラー: %v", err)
		}
	})

	cases := []struct {
		name   string
		mutate func(m map[string]any)
	}{
		{"未知のロールは拒否するのだ", func(m map[string]any) { m["type"] = "Operator" }},
		{"小文字のロールも強制変換しないのだ", func(m map[string]any) { m["type"] = "agent" }},
		{"内部分類名もワイヤ値ではないのだ", func(m map[string]any) { m["type"] = "autonomous" }},
		{"カットが3つしかないのだ", func(m map[string]any) { delete(m, "cut4") }},
		{"カットが5つあるのだ", func(m map[string]any) { m["cut5"] = m["cut1"] }},
		{"カット番号が飛んでいるのだ", func(m map[string]any) { m["cut5"] = m["cut4"]; delete(m, "cut4") }},
		{"ideaName が無いのだ", func(m map[string]any) { delete(m, "ideaName") }},
		{"childAgents が文字列なのだ", func(m map[string]any) { m["childAgents"] = "Agent" }},
		{"タイトルが空なのだ", func(m map[string]any) {
			m["cut2"].(map[string]any)["sceneName"] = "  "
		}},
		{"features が欠けているのだ", func(m map[string]any) {
			delete(m["cut3"].(map[string]any), "features")
		}},
		{"カットがオブジェクトではないのだ", func(m map[string]any) { m["cut1"] = "scene" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := ParseNarrativeResult(mutateNarrative(t, tc.mutate))
			if !errors.Is(err, ErrMalformedResponse) {
				t.Fatalf("ErrMalformedResponse を期待したのだ: %v", err)
			}
			if res != nil {
				t.Errorf("エラー時に部分的な結果を返してはいけないのだ: %+v", res)
			}
		})
	}

	t.Run("配列や空の応答は拒否するのだ", func(t *testing.T) {
		for _, raw := range []string{"", "[]", "null", "not json"} {
			if _, err := ParseNarrativeResult([]byte(raw)); !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("%q: ErrMalformedResponse を期待したのだ: %v", raw, err)
			}
		}
	})

	t.Run("説明と特徴が疎でも受け付けるのだ", func(t *testing.T) {
		raw := mutateNarrative(t, func(m map[string]any) {
			cut := m["cut4"].(map[string]any)
			cut["description"] = ""
			cut["features"] = []string{}
		})
		res, err := ParseNarrativeResult(raw)
		if err != nil {
			t.Fatalf("予期しないエラー: %v", err)
		}
		if res.Segments[3].Description != "" || len(res.Segments[3].Features) != 0 {
			t.Errorf("疎なカットがそのまま保持されていないのだ: %+v", res.Segments[3])
		}
	})
}

func TestNarrativeResult_RoundTrip(t *testing.T) {
	original, err := ParseNarrativeResult([]byte(validNarrativeJSON))
	if err != nil {
		t.Fatalf("パース失敗なのだ: %v", err)
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal失敗なのだ: %v", err)
	}
	var decoded NarrativeResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("書き出した形式を読み戻せないのだ: %v", err)
	}
	if !reflect.DeepEqual(*original, decoded) {
		t.Errorf("変換前後でデータが一致しないのだ。期待: %+v, 実際: %+v", *original, decoded)
	}
}

func TestNarrativeRequest(t *testing.T) {
	t.Run("名前と概要だけで有効なのだ", func(t *testing.T) {
		req, err := NewNarrativeRequest("X", "Y")
		if err != nil {
			t.Fatalf("予期しないエラー: %v", err)
		}
		if req.Hints() != [SegmentCount]string{} {
			t.Errorf("ヒントは空のはずなのだ: %v", req.Hints())
		}
		b, _ := json.Marshal(req)
		for _, key := range []string{`"ideaName":"X"`, `"ideaOverview":"Y"`, `"cut1":""`, `"cut4":""`} {
			if !strings.Contains(string(b), key) {
				t.Errorf("ワイヤ形式に %s が無いのだ: %s", key, b)
			}
		}
	})

	t.Run("ヒントは位置順に入るのだ", func(t *testing.T) {
		req, err := NewNarrativeRequest("X", "Y", "a", "", "c")
		if err != nil {
			t.Fatalf("予期しないエラー: %v", err)
		}
		if req.Cut1 != "a" || req.Cut2 != "" || req.Cut3 != "c" || req.Cut4 != "" {
			t.Errorf("ヒントの配置が違うのだ: %+v", req)
		}
	})

	t.Run("空や空白だけの必須項目は拒否するのだ", func(t *testing.T) {
		for _, tc := range []struct{ name, overview string }{{"", "Y"}, {"X", ""}, {"  ", "Y"}} {
			if _, err := NewNarrativeRequest(tc.name, tc.overview); !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("%+v: ErrInvalidRequest を期待したのだ: %v", tc, err)
			}
		}
	})

	t.Run("ヒントが5つ以上なら拒否するのだ", func(t *testing.T) {
		if _, err := NewNarrativeRequest("X", "Y", "1", "2", "3", "4", "5"); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("ErrInvalidRequest を期待したのだ: %v", err)
		}
	})
}

func TestDisplayChildRoles(t *testing.T) {
	n := NarrativeResult{ChildRoles: []string{"Monitoring Agent", "Planner"}}
	got := n.DisplayChildRoles()
	want := []string{"Monitoring", "Planner"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("期待値 %v, 実際の値 %v", want, got)
	}
}

func TestTruncate(t *testing.T) {
	in := strings.Repeat("設備予知保全", 30)
	got := truncate(in, 120)
	if !utf8.ValidString(got) {
		t.Errorf("マルチバイト文字の途中で切れているのだ: %q", got)
	}
	if want := string([]rune(in)[:120]) + "..."; got != want {
		t.Errorf("truncate = %q, want %q", got, want)
	}
	if got := truncate("短い", 120); got != "短い" {
		t.Errorf("短い文字列はそのままなのだ: %q", got)
	}

	_, err := ParseNarrativeResult([]byte(in))
	if err == nil || !utf8.ValidString(err.Error()) {
		t.Errorf("エラーメッセージの抜粋が壊れているのだ: %v", err)
	}
}
