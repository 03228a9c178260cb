package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/auth"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/config"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/enums"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/env"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/logger"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "mint-token"})

	_, _ = env.LoadDotenv()

	userFlag := flag.String("user", "", "user id (uuid); a random one is generated when empty")
	roleFlag := flag.String("role", string(enums.UserRoleBuyer), "role: buyer|seller|admin")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}
	if cfg.App.IsProd() {
		fmt.Fprintln(os.Stderr, "refusing to mint tokens in prod")
		os.Exit(1)
	}

	userID := uuid.New()
	if *userFlag != "" {
		userID, err = uuid.Parse(*userFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -user: %v\n", err)
			os.Exit(1)
		}
	}
	role, err := enums.ParseUserRole(*roleFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -role: %v\n", err)
		os.Exit(1)
	}

	token, err := auth.MintAccessToken(cfg.JWT, time.Now(), auth.AccessTokenPayload{UserID: userID, Role: role})
	if err != nil {
		logg.Error(ctx, "failed to mint token", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "user_id=%s role=%s expires_in=%dm\n", userID, role, cfg.JWT.ExpirationMinutes)
	fmt.Println(token)
}
