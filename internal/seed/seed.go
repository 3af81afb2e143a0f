package seed

import (
	"context"
	"fmt"

	"agora/internal/database"
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/repository"

	"gorm.io/gorm"
)

// Options configure a seeding run.
type Options struct {
	Users           int
	PostsPerUser    int
	CommentsPerPost int
	// MaxDays bounds how far back post timestamps go.
	MaxDays int
	// RandSeed makes a run reproducible. Zero means random.
	RandSeed   int64
	SkipBcrypt bool
	Clean      bool
}

// DefaultOptions is a small mesh suitable for local development.
func DefaultOptions() Options {
	return Options{Users: 25, PostsPerUser: 3, CommentsPerPost: 2, MaxDays: 90}
}

// Summary counts what a run created.
type Summary struct {
	Users     int `json:"users"`
	Posts     int `json:"posts"`
	Comments  int `json:"comments"`
	Friends   int `json:"friends"`
	Follows   int `json:"follows"`
	Blocks    int `json:"blocks"`
	Favorites int `json:"favorites"`
	Votes     int `json:"votes"`
	Reports   int `json:"reports"`
}

var reportReasons = []string{
	"spam",
	"off-topic",
	"harassment",
	"misleading information",
	"duplicate post",
}

// Mesh builds a social mesh: users with posts and comments, friend, follow
// and block edges between them, favorites, votes and a few pending reports.
// Everything goes through the repositories so the same constraints apply as
// at runtime. Events are not published.
func Mesh(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	if opts.Users < 2 {
		return nil, fmt.Errorf("seed needs at least 2 users, got %d", opts.Users)
	}
	if opts.Clean {
		if err := Clean(ctx, db); err != nil {
			return nil, fmt.Errorf("clean: %w", err)
		}
	}

	f := NewFactory(db, opts)
	sum := &Summary{}

	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		u, err := f.CreateUser(ctx)
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	sum.Users = len(users)

	var posts []*models.Post
	var comments []*models.Comment
	for _, author := range users {
		for i := 0; i < opts.PostsPerUser; i++ {
			p, err := f.CreatePost(ctx, author)
			if err != nil {
				return nil, fmt.Errorf("create post: %w", err)
			}
			posts = append(posts, p)
		}
	}
	for _, p := range posts {
		for i := 0; i < opts.CommentsPerPost; i++ {
			c, err := f.CreateComment(ctx, f.pickUser(users), p)
			if err != nil {
				return nil, fmt.Errorf("create comment: %w", err)
			}
			comments = append(comments, c)
		}
	}
	sum.Posts, sum.Comments = len(posts), len(comments)

	if err := f.seedRelations(ctx, db, users, sum); err != nil {
		return nil, err
	}
	if err := f.seedEngagement(ctx, db, users, posts, comments, sum); err != nil {
		return nil, err
	}
	if err := f.seedReports(ctx, db, users, posts, comments, sum); err != nil {
		return nil, err
	}

	middleware.Logger.Info("seed complete",
		"users", sum.Users, "posts", sum.Posts, "comments", sum.Comments,
		"friends", sum.Friends, "follows", sum.Follows, "blocks", sum.Blocks,
		"favorites", sum.Favorites, "votes", sum.Votes, "reports", sum.Reports)
	return sum, nil
}

// Clean removes every row owned by the application, children first.
func Clean(ctx context.Context, db *gorm.DB) error {
	all := database.PersistentModels()
	tx := db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for i := len(all) - 1; i >= 0; i-- {
		if err := tx.Delete(all[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// seedRelations walks every ordered pair once. Friendships are stored in
// both directions.
func (f *Factory) seedRelations(ctx context.Context, db *gorm.DB, users []*models.User, sum *Summary) error {
	relations := repository.NewRelationRepository(db)
	add := func(kind models.RelationKind, a, b uint) error {
		created, err := relations.Add(ctx, kind, a, b)
		if err != nil {
			return fmt.Errorf("add %s edge: %w", kind, err)
		}
		if created {
			switch kind {
			case models.RelationFriend:
				sum.Friends++
			case models.RelationFollow:
				sum.Follows++
			case models.RelationBlock:
				sum.Blocks++
			}
		}
		return nil
	}

	for i, a := range users {
		for j, b := range users {
			if i == j {
				continue
			}
			switch {
			case f.chance(3):
				if err := add(models.RelationBlock, a.ID, b.ID); err != nil {
					return err
				}
			case i < j && f.chance(15):
				if err := add(models.RelationFriend, a.ID, b.ID); err != nil {
					return err
				}
				if err := add(models.RelationFriend, b.ID, a.ID); err != nil {
					return err
				}
			case f.chance(30):
				if err := add(models.RelationFollow, a.ID, b.ID); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (f *Factory) seedEngagement(ctx context.Context, db *gorm.DB, users []*models.User, posts []*models.Post, comments []*models.Comment, sum *Summary) error {
	favorites := repository.NewFavoriteRepository(db)
	votes := repository.NewVoteRepository(db)

	for _, u := range users {
		if len(posts) > 0 {
			for i := f.faker.Number(0, 3); i > 0; i-- {
				created, err := favorites.Add(ctx, u.ID, f.pickPost(posts).ID)
				if err != nil {
					return fmt.Errorf("add favorite: %w", err)
				}
				if created {
					sum.Favorites++
				}
			}
		}

		// Upsert keeps one live vote per target; count distinct targets.
		seen := map[models.VoteTarget]bool{}
		for i := f.faker.Number(2, 8); i > 0; i-- {
			target := f.pickTarget(posts, comments)
			if target.TargetID == 0 {
				break
			}
			value := models.VoteUp
			if f.chance(25) {
				value = models.VoteDown
			}
			vote := &models.Vote{UserID: u.ID, TargetType: target.TargetType, TargetID: target.TargetID, Value: value}
			if err := votes.Upsert(ctx, vote); err != nil {
				return fmt.Errorf("cast vote: %w", err)
			}
			if !seen[target] {
				seen[target] = true
				sum.Votes++
			}
		}
	}
	return nil
}

func (f *Factory) seedReports(ctx context.Context, db *gorm.DB, users []*models.User, posts []*models.Post, comments []*models.Comment, sum *Summary) error {
	reports := repository.NewReportRepository(db)
	content := repository.NewContentRepository(db)
	for _, u := range users {
		if !f.chance(20) {
			continue
		}
		target := f.pickTarget(posts, comments)
		if target.TargetID == 0 {
			return nil
		}
		report := &models.Report{
			ReporterID: u.ID,
			TargetType: target.TargetType,
			TargetID:   target.TargetID,
			Reason:     reportReasons[f.faker.Number(0, len(reportReasons)-1)],
			Status:     models.ReportPending,
		}
		if err := reports.Create(ctx, report); err != nil {
			return fmt.Errorf("file report: %w", err)
		}
		if err := content.SetReported(ctx, target.TargetType, target.TargetID, true); err != nil {
			return fmt.Errorf("flag reported content: %w", err)
		}
		sum.Reports++
	}
	return nil
}

func (f *Factory) pickUser(users []*models.User) *models.User {
	return users[f.faker.Number(0, len(users)-1)]
}

func (f *Factory) pickPost(posts []*models.Post) *models.Post {
	return posts[f.faker.Number(0, len(posts)-1)]
}

// pickTarget returns a zero target when there is no content at all.
func (f *Factory) pickTarget(posts []*models.Post, comments []*models.Comment) models.VoteTarget {
	switch {
	case len(comments) > 0 && (len(posts) == 0 || f.chance(40)):
		c := comments[f.faker.Number(0, len(comments)-1)]
		return models.VoteTarget{TargetType: models.TargetComment, TargetID: c.ID}
	case len(posts) > 0:
		return models.VoteTarget{TargetType: models.TargetPost, TargetID: f.pickPost(posts).ID}
	}
	return models.VoteTarget{}
}
