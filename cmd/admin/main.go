// Command admin manages admin accounts and runs admin-only deletions.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"agora/internal/bootstrap"
	"agora/internal/cache"
	"agora/internal/config"
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/repository"
	"agora/internal/service"
)

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  admin promote <user_id>                     - Promote user to admin")
	fmt.Println("  admin demote <user_id>                      - Demote user from admin")
	fmt.Println("  admin list-admins                           - List all admins")
	fmt.Println("  admin delete-user -as <admin_id> <user_id>  - Delete a user and everything they own")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	if err := run(os.Args[1], os.Args[2:]); err != nil {
		middleware.Logger.Error("admin command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func run(command string, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SkipEvents: command != "delete-user"})
	if err != nil {
		return err
	}
	defer rt.Close()

	users := repository.NewUserRepository(rt.DB)

	switch command {
	case "promote", "demote":
		if len(args) < 1 {
			printUsage()
			return errors.New("missing user id")
		}
		id, err := parseUserID(args[0])
		if err != nil {
			return err
		}
		return setAdmin(ctx, users, id, command == "promote")
	case "list-admins":
		return listAdmins(ctx, users)
	case "delete-user":
		fs := flag.NewFlagSet("delete-user", flag.ContinueOnError)
		as := fs.String("as", "", "id of the admin performing the deletion")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if fs.NArg() < 1 || *as == "" {
			printUsage()
			return errors.New("delete-user needs -as and a user id")
		}
		actorID, err := parseUserID(*as)
		if err != nil {
			return err
		}
		targetID, err := parseUserID(fs.Arg(0))
		if err != nil {
			return err
		}
		return deleteUser(ctx, cfg, rt, users, actorID, targetID)
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func parseUserID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}
	return uint(id), nil
}

func setAdmin(ctx context.Context, users repository.UserRepository, id uint, admin bool) error {
	user, err := users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.IsAdmin == admin {
		fmt.Printf("User %s (ID: %d) already has is_admin=%t\n", user.Username, user.ID, admin)
		return nil
	}
	if err := users.SetAdmin(ctx, id, admin); err != nil {
		return err
	}
	fmt.Printf("Set is_admin=%t for %s (ID: %d)\n", admin, user.Username, user.ID)
	return nil
}

func listAdmins(ctx context.Context, users repository.UserRepository) error {
	admins, err := users.ListAdmins(ctx)
	if err != nil {
		return err
	}
	if len(admins) == 0 {
		fmt.Println("No admins found")
		return nil
	}
	fmt.Printf("%-6s %-24s %s\n", "ID", "USERNAME", "EMAIL")
	for _, a := range admins {
		fmt.Printf("%-6d %-24s %s\n", a.ID, a.Username, a.Email)
	}
	return nil
}

// deleteUser runs the same lifecycle path as DELETE /api/admin/users/:id,
// including event publication.
func deleteUser(ctx context.Context, cfg *config.Config, rt *bootstrap.Runtime, users repository.UserRepository, actorID, targetID uint) error {
	isAdmin, err := users.IsAdmin(ctx, actorID)
	if err != nil {
		return fmt.Errorf("look up actor: %w", err)
	}

	var tallies *cache.TallyCache
	if rt.Redis != nil {
		tallies = cache.NewTallyCache(rt.Redis, time.Duration(cfg.TallyCacheTTLSeconds)*time.Second)
	}
	content := repository.NewContentRepository(rt.DB)
	cascade := service.NewCascadeCoordinator(rt.DB,
		repository.NewRelationRepository(rt.DB),
		repository.NewFavoriteRepository(rt.DB),
		repository.NewVoteRepository(rt.DB),
		repository.NewReportRepository(rt.DB),
		tallies, rt.Events)
	lifecycle := service.NewLifecycleService(rt.DB, users, content, cascade, rt.Events)

	report, err := lifecycle.DeleteUser(ctx, models.AuthenticatedUser{ID: actorID, IsAdmin: isAdmin}, targetID)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted user %d: relations=%d favorites=%d votes=%d reports=%d\n",
		targetID, report.Relations, report.Favorites, report.Votes, report.Reports)
	return nil
}
