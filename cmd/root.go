/*
Package cmd implements the command-line interface for the A2A task server.
It provides the serve command and a small client for exercising a server.
*/
package cmd

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

/*
Embed a mini filesystem into the binary to hold the default config file.
This will be written to the home directory of the user running the service,
which allows a developer to easily override the config file.
*/
//go:embed cfg/*
var embedded embed.FS

var (
	projectName = "a2a-server"
	cfgFile     string

	rootCmd = &cobra.Command{
		Use:   projectName,
		Short: "A server-side runtime for the Agent-to-Agent (A2A) task protocol",
		Long:  longRoot,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}
)

/*
Execute is the main entry point for the CLI.
*/
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is $HOME/."+projectName+"/config.yml)",
	)
}

/*
initConfig writes the default config file to the user's home directory if it
doesn't exist, then reads it. Environment variables prefixed with A2A
override any key, with dots replaced by underscores.
*/
func initConfig() {
	viper.SetEnvPrefix("A2A")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("handler.openai.api_key", "A2A_HANDLER_OPENAI_API_KEY", "OPENAI_API_KEY")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if err := writeConfig(); err != nil {
			log.Fatal("failed to write default config", "error", err)
		}

		home, _ := os.UserHomeDir()
		viper.SetConfigName("config")
		viper.SetConfigType("yml")
		viper.AddConfigPath(filepath.Join(home, "."+projectName))
	}

	if err := viper.ReadInConfig(); err != nil {
		log.Fatal("failed to read config", "error", err)
	}
}

func setupLogging() {
	log.SetReportTimestamp(true)
	log.SetPrefix("a2a")

	if level, err := log.ParseLevel(viper.GetString("log.level")); err == nil {
		log.SetLevel(level)
	}
}

/*
writeConfig writes the embedded default config to the user's home
directory, unless a config is already there.
*/
func writeConfig() (err error) {
	var (
		home, _ = os.UserHomeDir()
		fh      fs.File
		buf     bytes.Buffer
	)

	configDir := filepath.Join(home, "."+projectName)

	if !CheckFileExists(configDir) {
		if err = os.MkdirAll(configDir, os.ModePerm); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	fullPath := filepath.Join(configDir, "config.yml")

	if CheckFileExists(fullPath) {
		return nil
	}

	if fh, err = embedded.Open("cfg/config.yml"); err != nil {
		return fmt.Errorf("failed to open embedded config file: %w", err)
	}

	defer fh.Close()

	if _, err = io.Copy(&buf, fh); err != nil {
		return fmt.Errorf("failed to read embedded config file: %w", err)
	}

	if err = os.WriteFile(fullPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Info("wrote config file", "path", fullPath)

	return nil
}

func CheckFileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return !errors.Is(err, os.ErrNotExist)
}

var longRoot = `
a2a-server hosts an agent behind the Agent-to-Agent (A2A) task protocol.
It speaks JSON-RPC 2.0 over HTTP, streams task events over Server-Sent Events,
persists tasks in memory, Redis, S3 or SQLite, and delivers push notifications
to client webhooks.
`
