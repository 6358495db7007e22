package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-scenario-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// scenarioCmd は、シナリオの生成から画像取得、カードの書き出しまでを一気に実行するのだ。
var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "4 コマのシナリオカードを生成しますなのだ。",
	Long: `アイデア名と概要から 4 コマのシナリオを生成し、各カットの画像を取得して書き出すのだ。
--cut1 から --cut4 でカットごとのヒントを渡せるのだ。空のカットはワーカーが考えるのだよ。`,
	RunE: scenarioCommand,
}

func init() {
	scenarioCmd.Flags().StringVarP(&opts.IdeaName, "name", "n", "", "アイデア名なのだ（必須）。")
	scenarioCmd.Flags().StringVar(&opts.IdeaOverview, "overview", "", "アイデアの概要なのだ（必須）。")
	for i := range opts.Cuts {
		scenarioCmd.Flags().StringVar(&opts.Cuts[i], fmt.Sprintf("cut%d", i+1), "", fmt.Sprintf("カット %d のヒントなのだ。", i+1))
	}
}

func scenarioCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if opts.IdeaName == "" || opts.IdeaOverview == "" {
		return fmt.Errorf("--name と --overview を指定してほしいのだ")
	}

	cfg := loadConfig(cmd)
	slog.Info("シナリオ生成パイプラインを起動するのだ！",
		"worker", cfg.WorkerBaseURL,
		"output", cfg.ResolvedOutputDir(),
	)

	res, err := pipeline.ExecuteScenario(ctx, cfg)
	if err != nil {
		return fmt.Errorf("パイプライン実行中にエラーが発生したのだ: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), res.MarkdownPath)
	return nil
}
