package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/journal-agent/internal/config"
)

var configCommand = &cobra.Command{
	Use:   "config",
	Short: "Save or clear the local config file",
}

var configSaveCommand = &cobra.Command{
	Use:   "save",
	Short: "Write the current flag values to the config file",
	Long: `Resolves the configuration the same way run does (existing file, then
flags, then defaults) and writes the result back, so the next run needs no
flags. The file includes the password when one was given; it is written
readable by the owner only.`,
	RunE: configSaveCmd,
}

var configClearCommand = &cobra.Command{
	Use:   "clear",
	Short: "Delete the config file",
	RunE:  configClearCmd,
}

var (
	configSaveOpts  runFlags
	configSaveFile  string
	configClearFile string
)

func init() {
	registerRunFlags(configSaveCommand, &configSaveOpts)
	configSaveCommand.Flags().StringVar(&configSaveFile, "file", config.DefaultFileName, "Path to write the config file")
	configClearCommand.Flags().StringVar(&configClearFile, "file", config.DefaultFileName, "Path of the config file to delete")

	configCommand.AddCommand(configSaveCommand)
	configCommand.AddCommand(configClearCommand)
	rootCmd.AddCommand(configCommand)
}

func configSaveCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd, &configSaveOpts)
	if err != nil {
		return err
	}
	if err := cfg.Save(configSaveFile); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Saved config to: %s\n", configSaveFile)
	return nil
}

func configClearCmd(_ *cobra.Command, _ []string) error {
	if err := config.Clear(configClearFile); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Removed config: %s\n", configClearFile)
	return nil
}
