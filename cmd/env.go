package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/urfave/cli/v2"
)

// ConfigCheckResult holds the result of configuration validation
type ConfigCheckResult struct {
	Missing  []string          // Required variables that are missing
	Present  map[string]string // Variables that are set (masked values)
	Warnings []string          // Non-fatal warnings
}

var (
	// Needed by every command.
	requiredVars = []string{
		"GITLAB_PERSONAL_ACCESS_TOKEN",
	}

	// Needed by serve only.
	botVars = []string{
		"GITLAB_REPOSITORY",
	}

	optionalVars = []string{
		"GITLAB_URL",
		"GITLAB_GROUP",
		"LLM_PROVIDER",
		"MODEL_NAME",
		"OPENAI_API_KEY",
		"OPENAI_BASE_URL",
		"BOT_USERNAME",
		"WEBHOOK_SECRET",
		"LISTEN_ADDR",
	}

	secretVars = map[string]bool{
		"GITLAB_PERSONAL_ACCESS_TOKEN": true,
		"OPENAI_API_KEY":               true,
		"WEBHOOK_SECRET":               true,
	}
)

// CheckRequiredConfig validates that required environment variables are set
func CheckRequiredConfig() *ConfigCheckResult {
	result := &ConfigCheckResult{
		Missing:  []string{},
		Present:  make(map[string]string),
		Warnings: []string{},
	}

	for _, v := range requiredVars {
		val := os.Getenv(v)
		if val == "" {
			result.Missing = append(result.Missing, v)
		} else {
			result.Present[v] = displayValue(v, val)
		}
	}

	for _, v := range botVars {
		val := os.Getenv(v)
		if val == "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s is not set; serve will refuse to start", v))
		} else {
			result.Present[v] = displayValue(v, val)
		}
	}

	for _, v := range optionalVars {
		val := os.Getenv(v)
		if val != "" {
			result.Present[v] = displayValue(v, val)
		}
	}

	if os.Getenv("OPENAI_API_KEY") == "" && (os.Getenv("LLM_PROVIDER") == "" || os.Getenv("LLM_PROVIDER") == "openai") {
		result.Warnings = append(result.Warnings, "OPENAI_API_KEY is not set for the openai provider")
	}

	return result
}

// PrintConfigCheck prints the configuration check results
func PrintConfigCheck(result *ConfigCheckResult) {
	fmt.Println("=== Configuration Check ===")
	fmt.Println("")

	if len(result.Missing) > 0 {
		fmt.Println("❌ Missing required variables:")
		for _, v := range result.Missing {
			fmt.Printf("   - %s\n", v)
		}
		fmt.Println("")
	}

	if len(result.Present) > 0 {
		keys := make([]string, 0, len(result.Present))
		for k := range result.Present {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Println("✓ Configured variables:")
		for _, k := range keys {
			fmt.Printf("   - %s = %s\n", k, result.Present[k])
		}
		fmt.Println("")
	}

	for _, w := range result.Warnings {
		fmt.Printf("⚠ Warning: %s\n", w)
	}

	if len(result.Missing) == 0 {
		fmt.Println("✓ All required configuration is present")
	}

	fmt.Println("============================")
}

// EnvCommand returns the command that reports which variables are set
func EnvCommand() *cli.Command {
	return &cli.Command{
		Name:  "env",
		Usage: "Check the environment variables the tools read",
		Action: func(c *cli.Context) error {
			result := CheckRequiredConfig()
			PrintConfigCheck(result)
			if len(result.Missing) > 0 {
				return fmt.Errorf("missing required variables")
			}
			return nil
		},
	}
}

func displayValue(name, value string) string {
	if secretVars[name] {
		return maskSecret(value)
	}
	return value
}

// maskSecret masks a secret value for display, showing only first and last 2 chars
func maskSecret(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	return value[:2] + "****" + value[len(value)-2:]
}
