// Command bootstrap-admin gives the first administrator role to an existing member.
// It refuses to run once any administrator is active.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/itchan-dev/modpolicy/backend/internal/service"
	"github.com/itchan-dev/modpolicy/backend/internal/storage/pg"
	"github.com/itchan-dev/modpolicy/shared/config"
	"github.com/itchan-dev/modpolicy/shared/logger"
)

func main() {
	var configFolder, member string
	flag.StringVar(&configFolder, "config_folder", "config", "path to folder with configs")
	flag.StringVar(&member, "member", "", "id of the member to promote")
	flag.Parse()

	memberId, err := uuid.Parse(member)
	if err != nil {
		fmt.Fprintln(os.Stderr, "-member must be a member uuid")
		os.Exit(2)
	}

	cfg := config.MustLoad(configFolder)
	logger.Initialize(cfg.Public.LogLevel, false)

	storage, err := pg.New(cfg)
	if err != nil {
		logger.Log.Error("failed to connect", "error", err)
		os.Exit(1)
	}
	defer storage.Cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	assignment, err := service.NewRoles(storage, &cfg.Public).Bootstrap(ctx, memberId)
	if err != nil {
		logger.Log.Error("bootstrap failed", "member_id", memberId, "error", err)
		os.Exit(1)
	}
	logger.Log.Info("administrator created", "member_id", memberId, "assignment_id", assignment.Id)
}
