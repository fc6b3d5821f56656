package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// AuthCmd creates the auth parent command
func AuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage authentication credentials",
		Long:  "Login, logout, and check authentication status for docpipe CLI",
	}

	cmd.AddCommand(AuthLoginCmd())
	cmd.AddCommand(AuthLogoutCmd())
	cmd.AddCommand(AuthStatusCmd())

	return cmd
}

type loginOptions struct {
	token     string
	apiURL    string
	tenantID  string
	projectID string
}

// AuthLoginCmd creates the auth login command
func AuthLoginCmd() *cobra.Command {
	var opts loginOptions

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login with an API token",
		Long: `Store the API token, URL and default tenant and project in the global
config (~/.config/docpipe/config.json). Tokens are issued with 'docpiped token'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogin(cmd.OutOrStdout(), os.Stdin, opts)
		},
	}

	cmd.Flags().StringVar(&opts.token, "token", "", "API token")
	cmd.Flags().StringVar(&opts.apiURL, "url", defaultAPIURL, "API URL")
	cmd.Flags().StringVar(&opts.tenantID, "tenant", "", "Default tenant ID")
	cmd.Flags().StringVar(&opts.projectID, "project", "", "Default project ID")

	return cmd
}

// AuthLogoutCmd creates the auth logout command
func AuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Logout and clear credentials",
		Long:  "Remove stored credentials from global config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogout(cmd.OutOrStdout())
		},
	}
}

// AuthStatusCmd creates the auth status command
func AuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Long:  "Display current authentication source and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAuthStatus(cmd.OutOrStdout(), outputJSON)
		},
	}
}

func runAuthLogin(out io.Writer, in io.Reader, opts loginOptions) error {
	token := opts.token
	if token == "" {
		fmt.Fprint(out, "Enter API token: ")
		input, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && input == "" {
			return fmt.Errorf("failed to read API token: %w", err)
		}
		token = strings.TrimSpace(input)
	}

	if !IsValidToken(token) {
		return fmt.Errorf("invalid API token format (expected a signed JWT)")
	}

	config := &GlobalConfig{
		Token:     token,
		APIURL:    opts.apiURL,
		TenantID:  opts.tenantID,
		ProjectID: opts.projectID,
	}
	if err := SaveGlobalConfig(config); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Fprintln(out, "Successfully logged in")
	return nil
}

func runAuthLogout(out io.Writer) error {
	if err := DeleteGlobalConfig(); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}

	fmt.Fprintln(out, "Successfully logged out")
	return nil
}

func runAuthStatus(out io.Writer, outputJSON bool) error {
	source, token, apiURL := GetCredentialSource("", "")

	if outputJSON {
		status := map[string]any{
			"authenticated": source != SourceNone,
			"source":        string(source),
		}
		if source != SourceNone {
			status["token"] = maskToken(token)
			status["api_url"] = apiURL
		}
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if source == SourceNone {
		fmt.Fprintln(out, "Not authenticated")
		fmt.Fprintln(out, "Run 'docpipe auth login' to authenticate")
		return nil
	}

	fmt.Fprintf(out, "Authenticated: yes\n")
	fmt.Fprintf(out, "Source: %s\n", source)
	fmt.Fprintf(out, "Token: %s\n", maskToken(token))
	fmt.Fprintf(out, "API URL: %s\n", apiURL)
	return nil
}

func maskToken(token string) string {
	if len(token) < 16 {
		return "***"
	}
	return token[:7] + "..." + token[len(token)-4:]
}
