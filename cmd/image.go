package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-scenario-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// imageCmd は、書き出し済みの scenario.json を読み込んで画像取得フェーズだけを実行するサブコマンドなのだ。
var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "scenario.json からカット画像を取り直して書き出すのだ。",
	Long: `すでに書き出した scenario.json を読み込み、4 カットの画像を取り直してカードを書き出すのだ。
シナリオ生成をやり直さずに画像だけ再取得したい場合に便利なのだ。`,
	RunE: imageCommand,
}

func init() {
	imageCmd.Flags().StringVarP(&opts.ScriptFile, "script-file", "f", "", "読み込む scenario.json のパスなのだ。")
}

// imageCommand は、image サブコマンドの実行ロジック本体なのだ。
func imageCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if opts.ScriptFile == "" {
		return fmt.Errorf("読み込むJSONファイル（--script-file）を指定してほしいのだ")
	}

	cfg := loadConfig(cmd)
	slog.Info("画像取得モードを起動するのだ！",
		"input_json", cfg.Options.ScriptFile,
		"output", cfg.ResolvedOutputDir(),
	)

	res, err := pipeline.ExecuteImageOnly(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.MarkdownPath)
	return nil
}
