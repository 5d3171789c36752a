package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"pairchat/backend/internal/api/handler"
	"pairchat/backend/internal/config"
	"pairchat/backend/internal/models"
	"pairchat/backend/internal/storage"

	"github.com/fatih/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "admin",
		Short: "Operator tooling for the pairchat backend",
		Long: `Administrative commands that talk to the same PostgreSQL and Redis
instances as the server. Connection settings are read from the environment
(or a .env file), exactly like the server does.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(createBanCmd())
	rootCmd.AddCommand(createUnbanCmd())
	rootCmd.AddCommand(createTokenCmd())
	rootCmd.AddCommand(createSessionsCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

// openStore connects to PostgreSQL and, when withRedis is set, to Redis.
func openStore(ctx context.Context, cfg config.Config, withRedis bool) (*storage.Service, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	var rdb *redis.Client
	if withRedis {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect Redis: %w", err)
		}
	}
	return storage.NewStorageService(db, rdb, logs.GetLoggerFromString(cfg.LogLevel)), nil
}

func createBanCmd() *cobra.Command {
	var hours int
	var reason string

	cmd := &cobra.Command{
		Use:   "ban <user_id>",
		Short: "Bar a user from joining any queue",
		Long: `Ban a user. Without --hours the ban lasts until "admin unban" is run.
A banned user who is already chatting keeps the current session; the ban
is checked the next time they try to join a queue.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if hours < 0 {
				return errors.New("--hours must not be negative")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			s, err := openStore(ctx, cfg, true)
			if err != nil {
				return err
			}
			if err := banUser(ctx, s, args[0], reason, time.Duration(hours)*time.Hour); err != nil {
				return err
			}
			if hours > 0 {
				color.Green("User %s has been banned for %d hour(s).", args[0], hours)
			} else {
				color.Green("User %s has been banned until further notice.", args[0])
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&hours, "hours", 0, "Ban duration in hours (0 means indefinite)")
	cmd.Flags().StringVar(&reason, "reason", "", "Reason stored with the ban")
	return cmd
}

func createUnbanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unban <user_id>",
		Short: "Lift a user's ban",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			s, err := openStore(ctx, cfg, true)
			if err != nil {
				return err
			}
			if err := s.UnbanUser(ctx, args[0]); err != nil {
				return fmt.Errorf("unban %s: %w", args[0], err)
			}
			color.Green("User %s has been unbanned.", args[0])
			return nil
		},
	}
}

func createTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token <user_id>",
		Short: "Issue an access token for a user",
		Long:  "Issue a signed access token, handy for connecting to /ws from a local client.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			s, err := openStore(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			if _, err := s.GetUserByID(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("lookup %s: %w", args[0], err)
			}

			token, err := handler.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer, config.TokenTTL).IssueToken(args[0])
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
}

func createSessionsCmd() *cobra.Command {
	var activeOnly bool
	var limit int

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List persisted chat sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			s, err := openStore(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			sessions, err := s.ListSessions(cmd.Context(), activeOnly, limit)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				color.Yellow("No sessions found.")
				return nil
			}
			renderSessions(sessions)
			return nil
		},
	}

	cmd.Flags().BoolVar(&activeOnly, "active", false, "Only show sessions that are still active")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of sessions to show")
	return cmd
}

func banUser(ctx context.Context, s *storage.Service, userID, reason string, duration time.Duration) error {
	if _, err := s.GetUserByID(ctx, userID); err != nil {
		return fmt.Errorf("lookup %s: %w", userID, err)
	}
	return s.BanUser(ctx, userID, reason, duration)
}

func renderSessions(sessions []models.ChatSession) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Session", "Type", "Users", "Interests", "Status", "Started", "Ended", "Reason"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	for _, s := range sessions {
		ended := "-"
		if s.EndedAt != nil {
			ended = s.EndedAt.Local().Format(time.DateTime)
		}
		table.Append([]string{
			s.SessionID,
			s.Type,
			s.User1ID + " / " + s.User2ID,
			strings.Join(s.CommonInterests, ", "),
			s.Status,
			s.StartedAt.Local().Format(time.DateTime),
			ended,
			s.EndReason,
		})
	}
	table.Render()
}
