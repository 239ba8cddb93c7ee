package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/avatarctic/volunteer-hub/internal/application/services"
	"github.com/avatarctic/volunteer-hub/internal/core/domain/auth"
)

func warmCmd() *cobra.Command {
	var (
		userID  string
		token   string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "warm",
		Short: "Run one cache warm pass for a user and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" && token == "" {
				return errors.New("one of --user-id or --token is required")
			}
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()
			if !a.cfg.Redis.Enabled {
				a.logger.Warn("Redis is disabled; warmed entries live only as long as this command")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			ctx = auth.WithIdentity(ctx, auth.Identity{UserID: userID, AccessToken: token})

			res := services.NewCacheWarmer(a.dataSource, a.cache, a.logger, a.metrics).WarmCache(ctx)
			if res.UserID == "" {
				return services.ErrNotAuthenticated
			}

			failed := make([]string, 0, len(res.Failed))
			for f, ferr := range res.Failed {
				failed = append(failed, f.String())
				a.logger.WithFields(logrus.Fields{"facet": f}).WithError(ferr).Warn("Facet stayed cold")
			}
			sort.Strings(failed)

			out, err := json.MarshalIndent(map[string]any{
				"user_id":     res.UserID,
				"role":        res.Role,
				"warmed":      res.Warmed,
				"failed":      failed,
				"duration_ms": res.Duration.Milliseconds(),
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "Profile id to warm for")
	cmd.Flags().StringVar(&token, "token", "", "Access token; resolves the user through the auth backend")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall deadline for the pass")
	return cmd
}
