package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# write debug output to the log
debug: false

reading:
  # what next/previous move by: page or sentence
  step: "page"
  # continue with the next page when a page is finished
  auto_advance: true
  # reload the page when the document changes on disk
  watch: true
  # where documents opened by URL are stored (default: user cache dir)
  # download_dir: "~/.cache/recite/documents"
  # reading positions file (default: user data dir)
  # positions: "~/.local/share/recite/positions.yml"

# Speech configuration
tts:
  # speech engine: piper, gtts or mock
  engine: "piper"
  # language code
  language: "en"
  # speech rate multiplier (0.5 to 2.0)
  rate: 1.0
  # output volume (0.0 to 1.0)
  volume: 1.0

  # Piper (offline) engine configuration
  piper:
    binary: "piper"
    model: "en_US-lessac-medium"
    # config: "/path/to/model.onnx.json"
    speaker: 0
    timeout: "30s"

  # Google TTS (online) engine configuration
  gtts:
    binary: "gtts-cli"
    ffmpeg: "ffmpeg"
    slow: false
    requests_per_minute: 60
    timeout: "30s"

  # Mock engine configuration (no audio)
  mock:
    words_per_minute: 180

  # Synthesized audio cache
  cache:
    # dir: "~/.cache/recite/speech"
    memory_mb: 32
    disk_mb: 256
    compression_level: 3
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the recite config file",
	Long:    paragraph(fmt.Sprintf("\n%s the recite config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("recite config\nrecite config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Recite", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
