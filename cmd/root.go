package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	cart "github.com/hoangtv/storefront/cart/cmd"
	checkout "github.com/hoangtv/storefront/checkout/cmd"
	"github.com/hoangtv/storefront/internal/constants"
	"github.com/hoangtv/storefront/internal/log"
)

func Start() {
	logger := log.InitLogger("/var/log/storefront.log").
		With().
		Str(log.KeyAppName, constants.APP_MAIN_STOREFRONT).
		Str(log.KeyTag, "main Start").
		Logger()

	logger.Info().Msg("adding listener for SIGINT and SIGTERM")
	c, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.Info().Msg("added listener for SIGINT and SIGTERM")

	c = logger.WithContext(c)

	rootCmd := &cobra.Command{}
	commands := []*cobra.Command{
		{
			Use:   "cart",
			Short: "Run cart sync service",
			Run: func(cmd *cobra.Command, args []string) {
				cart.RunCartService(cmd.Context())
			},
		},
		{
			Use:   "checkout",
			Short: "Run checkout service",
			Run: func(cmd *cobra.Command, args []string) {
				checkout.RunCheckoutService(cmd.Context())
			},
		},
	}
	rootCmd.AddCommand(commands...)
	if err := rootCmd.ExecuteContext(c); err != nil {
		logger.Fatal().Err(err).Msgf("error when executing command=%s", err.Error())
	}
}
