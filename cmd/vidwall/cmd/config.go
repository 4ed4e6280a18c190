package cmd

import (
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/vidwall/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  `Commands for managing vidwall configuration.`,
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the default configuration",
	Long: `Dump the default configuration values in YAML format.

This shows all available configuration options with their default values.
You can redirect this output to a file to create a configuration template:

  vidwall config dump > config.yaml

Configuration can be set via:
  - Config file (config.yaml, .vidwall.yaml, /etc/vidwall/config.yaml)
  - Environment variables (VIDWALL_SERVER_PORT, VIDWALL_WALL_ROWS, etc.)
  - Command-line flags (for some options)

Environment variables use the VIDWALL_ prefix and underscores for nesting.
Example: server.port -> VIDWALL_SERVER_PORT`,
	RunE: runConfigDump,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a configuration file",
	Long: `Load and validate a configuration file, reporting the first error found.

With no argument the usual search paths are checked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
	configCmd.AddCommand(configValidateCmd)
}

// toMap converts a struct to a map, formatting durations for human
// readability.
func toMap(v any) map[string]any {
	result := make(map[string]any)
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		key := fieldType.Tag.Get("mapstructure")
		if key == "" {
			key = fieldType.Name
		}

		switch v := field.Interface().(type) {
		case time.Duration:
			result[key] = v.String()
		case []time.Duration:
			formatted := make([]string, len(v))
			for i, d := range v {
				formatted[i] = d.String()
			}
			result[key] = formatted
		default:
			if field.Kind() == reflect.Struct {
				result[key] = toMap(field.Interface())
			} else {
				result[key] = field.Interface()
			}
		}
	}
	return result
}

func runConfigDump(cmd *cobra.Command, args []string) error {
	// Load config with defaults (no file, just defaults)
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	yamlData, err := yaml.Marshal(toMap(cfg))
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	fmt.Println("# vidwall Configuration File")
	fmt.Println("# ===========================")
	fmt.Println("#")
	fmt.Println("# All values shown below are defaults.")
	fmt.Println("# Duration format: 500ms, 30s, 5m, 1h")
	fmt.Println("#")
	fmt.Println("# Environment variable overrides:")
	fmt.Println("#   VIDWALL_SERVER_HOST, VIDWALL_SERVER_PORT")
	fmt.Println("#   VIDWALL_CONTENT_STREAM_LIST, VIDWALL_CONTENT_LIBRARY_DIR")
	fmt.Println("#   VIDWALL_WALL_ROWS, VIDWALL_WALL_COLS, VIDWALL_WALL_DISPLAYS")
	fmt.Println("#   VIDWALL_LOGGING_LEVEL, VIDWALL_LOGGING_FORMAT")
	fmt.Println("#   etc.")
	fmt.Println("#")
	fmt.Println("")
	fmt.Print(string(yamlData))

	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if len(args) == 1 {
		path = args[0]
	}

	if _, err := config.Load(path); err != nil {
		return err
	}

	fmt.Println("configuration is valid")
	return nil
}
