package commands

import (
	"encoding/json"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/tripline/am"
	"github.com/teranos/tripline/sym"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: sym.AM + " Show and validate tripline configuration",
	Long: sym.AM + ` am — Show and validate tripline configuration

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (TRIPLINE_* prefix)
3. Project config (./tripline.toml, searching up directories)
4. User config (~/.tripline/tripline.toml)
5. Default values

Examples:
  tripline am show                    # Show current configuration
  tripline am show --format json      # Show configuration in JSON format
  tripline am validate                # Validate current configuration
  tripline am where                   # List config files checked`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runAmShow,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	RunE:  runAmWhere,
}

var configFormat string

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))

	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
		fmt.Fprintf(out, "# tripline configuration\n%s", string(data))

	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to TOML: %w", err)
		}
		fmt.Fprintf(out, "# tripline configuration\n%s", string(data))

	default:
		return fmt.Errorf("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(cmd); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration is valid")
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	paths := am.ConfigPaths()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		paths = []string{path}
	}

	fmt.Fprintln(out, "Configuration cascade (later overrides earlier):")
	fmt.Fprintln(out, "  [DEFAULT]  Built-in defaults")
	for _, p := range paths {
		fmt.Fprintf(out, "  [FILE]     %s\n", p)
		keys, err := am.UndecodedKeys(p)
		if err != nil {
			fmt.Fprintf(out, "             unreadable: %v\n", err)
			continue
		}
		for _, k := range keys {
			fmt.Fprintf(out, "             unknown key: %s\n", k)
		}
	}
	if len(paths) == 0 {
		fmt.Fprintln(out, "  (no tripline.toml found)")
	}
	fmt.Fprintln(out, "  [ENV]      TRIPLINE_* environment variables")
	return nil
}
