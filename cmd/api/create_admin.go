package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"startup-apply/internal/config"
	"startup-apply/internal/db"
	"startup-apply/internal/repository"
	"startup-apply/internal/service"
)

func newCreateAdminCmd() *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin user, or promote it if the email already exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, _ := zap.NewProduction()
			defer logger.Sync()

			ctx := cmd.Context()
			pool, err := db.NewPool(ctx, cfg.DatabaseConfig)
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer pool.Close()

			users := repository.NewPgUserRepository(pool)
			jwtSvc := service.NewJWTService(cfg.JWTSecret, cfg.JWTTTL)
			userSvc := service.NewUserService(logger, users, jwtSvc, service.UserServiceConfig{BcryptCost: cfg.BcryptCost})

			user, created, err := userSvc.EnsureAdmin(ctx, name, email, password)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "admin created: %s (%s)\n", user.Email, user.ID)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "admin already present: %s (%s)\n", user.Email, user.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "Admin", "admin display name")
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "admin password, required when the user does not exist")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
