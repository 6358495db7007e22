package cmd

import (
	"github.com/shouni/go-scenario-kit/internal/builder"
	"github.com/shouni/go-scenario-kit/internal/server"

	"github.com/gin-gonic/gin"
	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"
)

// serveCmd は、シナリオカードの HTTP サーバーを起動するのだ。
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "シナリオカードの HTTP サーバーを起動するのだ。",
	RunE:  serveCommand,
}

func init() {
	serveCmd.Flags().StringVar(&opts.ServerAddr, "addr", "", "待ち受けアドレスなのだ（未指定なら SERVER_ADDR）。")
}

func serveCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := loadConfig(cmd)

	addr := cfg.ServerAddr
	if opts.ServerAddr != "" {
		addr = opts.ServerAddr
	}
	if !clibase.Flags.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	c, err := builder.InitializeClient(cfg)
	if err != nil {
		return err
	}
	return server.New(ctx, c, cfg.Library()).Run(ctx, addr)
}
