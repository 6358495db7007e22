package publisher

import (
	"fmt"
	"strings"

	"github.com/shouni/go-scenario-kit/pkg/domain"
)

const imageUnavailable = "_画像を取得できませんでした (image unavailable)_"

// buildScenarioMarkdown はカード 1 枚分の Markdown を組み立てます。
// imagePaths[i] が空のカットはプレースホルダーになるのだ。
func buildScenarioMarkdown(result *domain.NarrativeResult, imagePaths [domain.SegmentCount]string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", result.IdeaName))
	sb.WriteString(fmt.Sprintf("**%s** (%s)\n\n", result.Role, result.Role.Classification()))
	if overview := strings.TrimSpace(result.IdeaOverview); overview != "" {
		sb.WriteString(overview + "\n\n")
	}

	if children := result.DisplayChildRoles(); len(children) > 0 {
		sb.WriteString("## Child Agents\n\n")
		for _, c := range children {
			sb.WriteString(fmt.Sprintf("- %s\n", c))
		}
		sb.WriteString("\n")
	}

	for i, seg := range result.Segments {
		sb.WriteString(fmt.Sprintf("## Cut %d: %s\n\n", i+1, seg.Title))
		if imagePaths[i] != "" {
			sb.WriteString(fmt.Sprintf("![%s](%s)\n\n", seg.Title, imagePaths[i]))
		} else {
			sb.WriteString(imageUnavailable + "\n\n")
		}
		if d := strings.TrimSpace(seg.Description); d != "" {
			sb.WriteString(d + "\n\n")
		}
		for _, f := range seg.Features {
			sb.WriteString(fmt.Sprintf("- %s\n", f))
		}
		if len(seg.Features) > 0 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// buildIdeasMarkdown はアイデアカードの一覧を Markdown にするのだ。
func buildIdeasMarkdown(cards []domain.IdeaCard) string {
	var sb strings.Builder
	sb.WriteString("# Idea Cards\n\n")
	for i, c := range cards {
		sb.WriteString(fmt.Sprintf("## %d. %s\n\n", i+1, c.SolutionTitle))
		sb.WriteString(fmt.Sprintf("- category: %s (%s)\n", c.Category, c.Category.Classification()))
		if c.Process != "" {
			sb.WriteString(fmt.Sprintf("- process: %s\n", c.Process))
		}
		if c.HumanRole != "" {
			sb.WriteString(fmt.Sprintf("- human role: %s\n", c.HumanRole))
		}
		writeList(&sb, "expected effects", c.ExpectedEffects)
		writeList(&sb, "keywords", c.Keywords)
		writeList(&sb, "technologies", c.Technologies)
		if o := strings.TrimSpace(c.SolutionOverview); o != "" {
			sb.WriteString("\n" + o + "\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func writeList(sb *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("- %s: %s\n", label, strings.Join(items, ", ")))
}
