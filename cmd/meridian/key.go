package main

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/meridiandb/meridian/pkg/auth"
	"github.com/spf13/cobra"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage signing keys in the private-key vault",
}

var keyGenerateCmd = &cobra.Command{
	Use:   "generate NAME",
	Short: "Generate a new Ed25519 signing key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		pub, err := db.AddPrivateKey(name)
		if err != nil {
			return fmt.Errorf("failed to generate key: %w", err)
		}

		if err := persistAndClose(); err != nil {
			return err
		}

		fmt.Printf("✓ Key generated: %s\n", name)
		fmt.Printf("  Public key: %s\n", auth.FormatPublicKey(pub))
		return nil
	},
}

var keyImportCmd = &cobra.Command{
	Use:   "import NAME",
	Short: "Import an existing Ed25519 private key",
	Long: `Import a private key from a file holding its raw 64 bytes, or a
base64-encoded literal passed via --from-literal.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		fromFile, _ := cmd.Flags().GetString("from-file")
		fromLiteral, _ := cmd.Flags().GetString("from-literal")

		var raw []byte
		var err error
		switch {
		case fromFile != "":
			raw, err = os.ReadFile(fromFile)
			if err != nil {
				return fmt.Errorf("failed to read key file: %w", err)
			}
		case fromLiteral != "":
			raw, err = base64.StdEncoding.DecodeString(fromLiteral)
			if err != nil {
				return fmt.Errorf("invalid base64 literal: %w", err)
			}
		default:
			return fmt.Errorf("must specify one of: --from-file, --from-literal")
		}

		if len(raw) != ed25519.PrivateKeySize {
			return fmt.Errorf("private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
		}

		if err := db.ImportPrivateKey(name, ed25519.PrivateKey(raw)); err != nil {
			return fmt.Errorf("failed to import key: %w", err)
		}

		if err := persistAndClose(); err != nil {
			return err
		}

		fmt.Printf("✓ Key imported: %s\n", name)
		return nil
	},
}

var keyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored private keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := db.ListPrivateKeys()
		if err != nil {
			return fmt.Errorf("failed to list keys: %w", err)
		}

		if len(names) == 0 {
			fmt.Println("No keys found")
			return persistAndClose()
		}

		fmt.Printf("%-20s %s\n", "NAME", "PUBLIC KEY")
		for _, name := range names {
			formatted, err := db.GetFormattedPublicKey(name)
			if err != nil {
				formatted = "<error: " + err.Error() + ">"
			}
			fmt.Printf("%-20s %s\n", name, formatted)
		}
		return persistAndClose()
	},
}

func init() {
	keyCmd.AddCommand(keyGenerateCmd)
	keyCmd.AddCommand(keyImportCmd)
	keyCmd.AddCommand(keyListCmd)

	keyImportCmd.Flags().String("from-file", "", "Read the raw 64-byte private key from a file")
	keyImportCmd.Flags().String("from-literal", "", "Base64-encoded 64-byte private key")
}
