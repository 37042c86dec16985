package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"flickrpicker/pkg/auth"
	"flickrpicker/pkg/flickr"
	"flickrpicker/pkg/license"
	"flickrpicker/pkg/logger"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var authVerify bool

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Flickr API credentials",
	Long: `Manage stored Flickr API credentials.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables FLICKR_API_KEY and FLICKR_API_SECRET (read only)

Get an API key at https://www.flickr.com/services/apps/create/`,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a Flickr API key",
	Long: `Store a Flickr API key and secret under a profile name.

The key is read without echo when stdin is a terminal. With --verify the key
is checked by fetching the license catalog before it is stored.`,
	Example: `  # Store the default profile
  flickrpicker auth login

  # Store a second key
  flickrpicker auth login --profile research`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored credentials",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var statusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"list"},
	Short:   "Show stored credentials",
	Args:    cobra.NoArgs,
	RunE:    runAuthStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(statusCmd)

	loginCmd.Flags().BoolVar(&authVerify, "verify", true, "check the key against the Flickr API before storing it")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)

	if existing, _ := manager.Retrieve(profile); existing != nil {
		fmt.Printf("Profile '%s' already exists. Replace it? (y/N): ", profile)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	fmt.Print("Flickr API key: ")
	apiKey, err := readSecret(reader)
	if err != nil {
		return fmt.Errorf("failed to read API key: %w", err)
	}
	if apiKey == "" {
		return errors.New("API key is required")
	}

	fmt.Print("Flickr API secret (optional): ")
	apiSecret, err := readSecret(reader)
	if err != nil {
		return fmt.Errorf("failed to read API secret: %w", err)
	}

	creds := &auth.Credentials{Name: profile, APIKey: apiKey, APISecret: apiSecret}

	if authVerify {
		if err := verifyCredentials(cmd, creds); err != nil {
			return fmt.Errorf("the API key was rejected: %w", err)
		}
		printer.Success("API key verified")
	}

	if err := manager.Store(creds); err != nil {
		return err
	}
	printer.Success("Credentials stored for profile " + profile)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	if err := manager.Delete(profile); err != nil {
		return err
	}
	printer.Success("Removed credentials for profile " + profile)
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	list, err := manager.List()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		printer.Warning("No stored credentials. Run 'flickrpicker auth login'.")
		return nil
	}

	printer.Highlight("Stored credentials")
	for _, c := range list {
		s := auth.Sanitize(c)
		printer.Info(s.Name, fmt.Sprintf("key %s, updated %s", s.APIKey, s.LastModified.Format("2006-01-02 15:04")))
	}
	return nil
}

// verifyCredentials makes one cheap API call with the new key
func verifyCredentials(cmd *cobra.Command, creds *auth.Credentials) error {
	cfg, err := loadConfig(nil, false)
	if err != nil {
		return err
	}
	cfg.Flickr.APIKey = creds.APIKey
	cfg.Flickr.APISecret = creds.APISecret

	client := flickr.NewClient(cfg.Flickr, logger.GetLogger())
	_, err = license.NewRegistry(cmd.Context(), client)
	return err
}

// readSecret reads a line without echo when stdin is a terminal
func readSecret(reader *bufio.Reader) (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
