package cmd

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/3leaps/gobiome/pkg/metastore"
)

var (
	tokensDBPath  string
	tokenClientID string
	tokenValue    string
	tokenLifetime time.Duration
)

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Manage client bearer tokens",
	Long: `Manage the bearer tokens plugin runners authenticate with.

Tokens are provisioned here and handed to runners out of band; the API
itself never issues them.`,
}

var tokensCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a bearer token for a client",
	RunE:  runTokensCreate,
}

var tokensPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired tokens",
	RunE:  runTokensPurge,
}

func init() {
	rootCmd.AddCommand(tokensCmd)
	tokensCmd.AddCommand(tokensCreateCmd)
	tokensCmd.AddCommand(tokensPurgeCmd)

	tokensCmd.PersistentFlags().StringVar(&tokensDBPath, "db", "", "SQLite database path (overrides the postgres settings)")
	tokensCreateCmd.Flags().StringVar(&tokenClientID, "client", "", "Client identifier the token belongs to")
	tokensCreateCmd.Flags().StringVar(&tokenValue, "token", "", "Token value (generated when omitted)")
	tokensCreateCmd.Flags().DurationVar(&tokenLifetime, "lifetime", 24*time.Hour, "Token lifetime")
	_ = tokensCreateCmd.MarkFlagRequired("client")
}

func runTokensCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	token := tokenValue
	if token == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("generate token: %w", err)
		}
		token = hex.EncodeToString(buf)
	}

	_, db, err := openStore(ctx, tokensDBPath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	expiresAt := time.Now().UTC().Add(tokenLifetime)
	if err := metastore.InsertToken(ctx, db, token, tokenClientID, expiresAt); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(os.Stdout, "Token created")
	_, _ = fmt.Fprintf(os.Stdout, "client=%s\n", tokenClientID)
	_, _ = fmt.Fprintf(os.Stdout, "token=%s\n", token)
	_, _ = fmt.Fprintf(os.Stdout, "expires_at=%s\n", expiresAt.Format(time.RFC3339))
	return nil
}

func runTokensPurge(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	_, db, err := openStore(ctx, tokensDBPath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	purged, err := metastore.PurgeExpiredTokens(ctx, db)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(os.Stdout, "purged=%d\n", purged)
	return nil
}
