package etlm

import (
	"fmt"
	"os"

	"github.com/edgeflare/etlm/pkg/config"
	"github.com/spf13/cobra"
)

var cfgFile string
var cfg *config.Config
var rootCmd = &cobra.Command{
	Use:   "etlm",
	Short: "etlm is the ETL Manager backend",
	Long:  `etlm stores upstream CDC and Kafka settings and proxies database, sink and backfill management to Sequin`,
	// flags of the invoked subcommand take part in config resolution
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			fmt.Println(config.Version)
			return
		}

		// If no subcommand is provided, print help
		cmd.Help()
	},
	SilenceUsage: true,
}

func Main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(config.Version)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/etlm.yaml)")
	pf.StringP("log.level", "L", "info", "log at this level (debug, info, warn, error, none)")
	pf.String("postgres.connString", "", "PostgreSQL connection string (default built from postgres.user/password/host/port/db)")
	rootCmd.Flags().BoolP("version", "v", false, "Print the version number")

	rootCmd.AddCommand(versionCmd)
}
