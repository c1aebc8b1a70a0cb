package cmd

import (
	"errors"
	"os"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/yhkl-dev/tunecli/config"
	"github.com/yhkl-dev/tunecli/where"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configPathCmd, configShowCmd)

	configInitCmd.Flags().BoolP("force", "f", false, "Overwrite an existing config file")
	for _, c := range []*cobra.Command{configInitCmd, configPathCmd, configShowCmd} {
		c.SetOut(os.Stdout)
	}
}

// configCmd groups the configuration commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		path := lo.Ternary(configFile != "", configFile, where.ConfigFile())
		err := config.WriteDefault(path, lo.Must(cmd.Flags().GetBool("force")))
		if errors.Is(err, config.ErrExists) {
			handleErr(errors.New(path + " already exists, use --force to overwrite it"))
		}
		handleErr(err)
		cmd.Printf("wrote %s\n", path)
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(lo.Ternary(configFile != "", configFile, where.ConfigFile()))
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Run: func(cmd *cobra.Command, args []string) {
		loader := config.NewLoader(config.Options{File: configFile})
		cfg, err := loader.Load()
		handleErr(err)
		cfg.Catalog.Token = lo.Ternary(cfg.Catalog.Token != "", "********", "")

		data, err := config.Marshal(cfg)
		handleErr(err)
		if used := loader.Used(); used != "" {
			cmd.Printf("# %s\n", used)
		}
		cmd.Print(string(data))
	},
}
