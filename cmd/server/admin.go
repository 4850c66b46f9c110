// cmd/server/admin.go
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/auth"
	"github.com/jason-s-yu/arena/internal/config"
	"github.com/jason-s-yu/arena/internal/database"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/spf13/cobra"
)

var (
	flagGame  string
	flagLimit int
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the schema of the configured store and exit",
	Long: `Create the tables of the store selected by PERSIST_BACKEND (or --backend).
Only postgres and sqlite keep a schema; the other backends have nothing to do.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		log := newLogger(cfg.LogLevel)
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		switch cfg.PersistBackend {
		case config.BackendPostgres, config.BackendSQLite:
			// opening either store applies its schema
			_, closeStore, err := openRecorder(ctx, cfg, log)
			if err != nil {
				return err
			}
			closeStore()
			log.WithField("backend", cfg.PersistBackend).Info("schema is up to date")
		default:
			log.WithField("backend", cfg.PersistBackend).Info("backend has no schema")
		}
		return nil
	},
}

var matchesCmd = &cobra.Command{
	Use:   "matches",
	Short: "Print the most recent matches stored in sqlite",
	Long: `Print recent matches from the sqlite store at SQLITE_PATH.

Examples:
  arena matches
  arena matches --game blocks --limit 5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		store, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer store.Close()

		recs, err := store.RecentMatches(cmd.Context(), flagGame, flagLimit)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "FINISHED\tGAME\tPLAYER 1\tPLAYER 2\tWINNER")
		for _, m := range recs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				m.FinishedAt.Format(time.RFC3339), m.GameName, m.Player1.Name, m.Player2.Name, m.Winner)
		}
		return tw.Flush()
	},
}

var ratingCmd = &cobra.Command{
	Use:   "rating <user-id>",
	Short: "Print a registered player's rating from postgres",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid user id: %w", err)
		}
		pool, err := database.ConnectDB(cmd.Context(), database.ConnString())
		if err != nil {
			return err
		}
		store := database.NewPostgresStore(pool)
		defer store.Close()

		r, err := store.Rating(cmd.Context(), userID, flagGame)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s: %d (phi %.1f, sigma %.4f, %d games)\n", r.UserID, r.GameName, r.Elo, r.Phi, r.Sigma, r.Games)
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <user-id> <display-name>",
	Short: "Issue an auth token for a registered player",
	Long: `Sign a token that /ws accepts as a registered identity. The signing key
must come from JWT_PRIVATE_KEY_PATH and JWT_PUBLIC_KEY_PATH so that the running
server can verify it.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if cfg.JWTPrivateKeyPath == "" || cfg.JWTPublicKeyPath == "" {
			return fmt.Errorf("JWT_PRIVATE_KEY_PATH and JWT_PUBLIC_KEY_PATH must be set")
		}
		userID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid user id: %w", err)
		}
		ttl, err := auth.ParseExpireTime(cfg.TokenExpireTime)
		if err != nil {
			return err
		}
		if err := auth.InitFromPath(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, ttl); err != nil {
			return err
		}
		token, err := auth.CreateJWT(models.Identity{UserID: userID, DisplayName: args[1], IsRegistered: true})
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	matchesCmd.Flags().StringVar(&flagGame, "game", "paddle", "Game name: paddle or blocks")
	matchesCmd.Flags().IntVar(&flagLimit, "limit", 20, "Number of matches to print")
	ratingCmd.Flags().StringVar(&flagGame, "game", "paddle", "Game name: paddle or blocks")
}
