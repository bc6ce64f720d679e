package commands

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"szakszon.com/holdings/cli"
	"szakszon.com/holdings/config"
	"szakszon.com/holdings/logger"
	"szakszon.com/holdings/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve [--addr :8000]",
	Short: "Serves POST /download, running one download per requested symbol.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8000", "Address to listen on.")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, cmd.Flags(), map[string]string{
		"server.addr": "addr",
	})
	if err != nil {
		return err
	}

	zl, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer zl.Sync()

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %v", err)
	}
	runArgs := []string{"download"}
	if configFile != "" {
		runArgs = append(runArgs, "--config", configFile)
	}

	gin.SetMode(gin.ReleaseMode)

	c := cli.NewCommand(
		"serve",
		nil,
		cli.Addr(cfg.Server.Addr),
		cli.Runner(&server.ExecRunner{Path: exe, Args: runArgs}),
		cli.ZapLogger(zl),
		cli.Logger(logger.Sugar(zl)),
	)
	return c.Execute(cmd.Context())
}
