package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shouni/go-scenario-kit/internal/config"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"
)

const appName = "scenario-kit"

var (
	// opts は CLI フラグの値を受け取る実行時オプションなのだ。
	opts      config.GenerateOptions
	workerURL string
)

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
// --verbose と --config は clibase 側が持っているのだ。
func addAppFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().StringVarP(&workerURL, "worker-url", "w", "", "生成ワーカーのベースURLなのだ（未指定なら WORKER_BASE_URL）。")
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "ワーカー呼び出し 1 回あたりのタイムアウトなのだ（未指定なら HTTP_TIMEOUT）。")
	rootCmd.PersistentFlags().StringVarP(&opts.OutputDir, "output-dir", "o", "", "書き出し先のディレクトリなのだ（未指定なら OUTPUT_DIR）。")
}

// preRunAppE は、コマンド実行前にロガーを準備するのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if clibase.Flags.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// loadConfig は環境変数の設定にフラグの値を重ねるのだ。
// --http-timeout は明示的に指定されたときだけ HTTP_TIMEOUT より優先するのだ。
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg := config.LoadConfig()
	if workerURL != "" {
		cfg.WorkerBaseURL = workerURL
	}
	cfg.Options = opts
	if f := cmd.Flag("http-timeout"); f == nil || !f.Changed {
		cfg.Options.HTTPTimeout = 0
	}
	return cfg
}

// newRootCmd は clibase のルートコマンドにサブコマンドを載せるのだ。
func newRootCmd() *cobra.Command {
	rootCmd := clibase.NewRootCmd(appName, addAppFlags, preRunAppE)
	rootCmd.Short = "業務アイデアから 4 コマのシナリオカードを作るのだ。"
	rootCmd.Long = `業務の課題と期待をもとに、生成ワーカーへ 4 コマのシナリオを依頼し、
各カットの画像を時間差で取得してカード（Markdown + 画像 + JSON）として書き出すのだ。`
	rootCmd.SilenceUsage = true
	rootCmd.AddCommand(scenarioCmd, imageCmd, ideaCmd, serveCmd)
	return rootCmd
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// Ctrl-C で context がキャンセルされ、取得中の画像バッチも無効化されるのだ。
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
