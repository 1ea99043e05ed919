package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/d60-Lab/storefront/config"
	"github.com/d60-Lab/storefront/pkg/logger"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Storefront order and catalog service",
	Long: `Storefront serves the shop's catalog and order API.

Orders are created as pending and moved to accepted or rejected by an
admin; accepting an order decrements stock and increments sold counts.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env 只做引导，系统环境变量优先
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "warning: load %s: %v\n", envFile, err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading config")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap 读取配置并初始化日志
func bootstrap() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("driver", cfg.Database.Driver), zap.String("addr", cfg.Server.Addr))
	return cfg, nil
}
