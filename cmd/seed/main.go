// Command seed fills a development database with a demo social mesh.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"agora/internal/bootstrap"
	"agora/internal/config"
	"agora/internal/middleware"
	"agora/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	users := flag.Int("users", defaults.Users, "number of users to create")
	posts := flag.Int("posts-per-user", defaults.PostsPerUser, "posts per user")
	comments := flag.Int("comments-per-post", defaults.CommentsPerPost, "comments per post")
	maxDays := flag.Int("max-days", defaults.MaxDays, "spread post timestamps over this many days")
	randSeed := flag.Int64("rand-seed", 0, "fixed random seed for a reproducible mesh (0 = random)")
	clean := flag.Bool("clean", false, "delete all existing rows first")
	fast := flag.Bool("fast", false, "skip bcrypt; seeded accounts cannot log in")
	flag.Parse()

	if err := run(seed.Options{
		Users:           *users,
		PostsPerUser:    *posts,
		CommentsPerPost: *comments,
		MaxDays:         *maxDays,
		RandSeed:        *randSeed,
		SkipBcrypt:      *fast,
		Clean:           *clean,
	}); err != nil {
		middleware.Logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run(opts seed.Options) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.IsProduction() {
		return fmt.Errorf("refusing to seed a production database")
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{ApplySchema: true, SkipEvents: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	sum, err := seed.Mesh(ctx, rt.DB, opts)
	if err != nil {
		return err
	}
	fmt.Printf("seeded %d users, %d posts, %d comments, %d votes, %d reports\n",
		sum.Users, sum.Posts, sum.Comments, sum.Votes, sum.Reports)
	if !opts.SkipBcrypt {
		fmt.Printf("all seeded users have the password: %s\n", seed.DefaultPassword)
	}
	return nil
}
