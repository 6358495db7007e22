package cmd

import (
	"fmt"

	"github.com/shouni/go-scenario-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// ideaCmd は、業務コンテキストからアイデアカードを生成するのだ。
var ideaCmd = &cobra.Command{
	Use:   "idea",
	Short: "業務の課題からアイデアカードを生成するのだ。",
	RunE:  ideaCommand,
}

func init() {
	ideaCmd.Flags().StringVar(&opts.BusinessArea, "business-area", "", "業務領域なのだ。")
	ideaCmd.Flags().StringVar(&opts.PainPoints, "pain-points", "", "今困っていることなのだ。")
	ideaCmd.Flags().StringVar(&opts.Expectations, "expectations", "", "期待する効果なのだ。")
}

func ideaCommand(cmd *cobra.Command, args []string) error {
	if opts.BusinessArea == "" || opts.PainPoints == "" || opts.Expectations == "" {
		return fmt.Errorf("--business-area, --pain-points, --expectations をすべて指定してほしいのだ")
	}

	res, err := pipeline.ExecuteIdea(cmd.Context(), loadConfig(cmd))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.MarkdownPath)
	return nil
}
