// Package seed provides helpers to create demo data for local development
// and tests.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"agora/internal/models"
	"agora/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

var categories = []string{"general", "programming", "gaming", "music", "books", "science"}

// Factory builds domain entities and persists them through the repositories.
type Factory struct {
	faker   *gofakeit.Faker
	users   repository.UserRepository
	content repository.ContentRepository
	opts    Options

	// bcrypt is slow; the hash is computed once per Factory.
	passwordHash string
	seq          int
}

// NewFactory creates a Factory bound to db. A zero opts.RandSeed picks a
// time-based seed.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		faker:   gofakeit.New(seed),
		users:   repository.NewUserRepository(db),
		content: repository.NewContentRepository(db),
		opts:    opts,
	}
}

func (f *Factory) password() (string, error) {
	if f.passwordHash != "" {
		return f.passwordHash, nil
	}
	if f.opts.SkipBcrypt {
		f.passwordHash = "seeded-" + DefaultPassword
		return f.passwordHash, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	f.passwordHash = string(hash)
	return f.passwordHash, nil
}

// CreateUser persists a user with a unique fake username and email.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	hash, err := f.password()
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	f.seq++
	base := strings.ToLower(f.faker.Username())
	user := &models.User{
		Username: fmt.Sprintf("%s_%d", base, f.seq),
		Email:    fmt.Sprintf("%s_%d@%s", base, f.seq, "example.com"),
		Password: hash,
		Bio:      f.faker.Sentence(8),
	}
	for _, override := range overrides {
		override(user)
	}
	if err := f.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a post by author without persisting it. created_at
// falls within the last opts.MaxDays days.
func (f *Factory) BuildPost(author *models.User) *models.Post {
	created := f.pastTime()
	return &models.Post{
		Title:     strings.TrimSuffix(f.faker.Sentence(5), "."),
		Content:   f.faker.Paragraph(1, 3, 12, "\n"),
		Category:  categories[f.faker.Number(0, len(categories)-1)],
		UserID:    author.ID,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

// CreatePost persists a post by author.
func (f *Factory) CreatePost(ctx context.Context, author *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(author)
	for _, override := range overrides {
		override(post)
	}
	if err := f.content.CreatePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// CreateComment persists a comment by author on post, dated after the post.
func (f *Factory) CreateComment(ctx context.Context, author *models.User, post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	created := post.CreatedAt.Add(time.Duration(f.faker.Number(1, 72*60)) * time.Minute)
	if now := time.Now(); created.After(now) {
		created = now
	}
	comment := &models.Comment{
		Content:   f.faker.Sentence(f.faker.Number(4, 16)),
		PostID:    post.ID,
		UserID:    author.ID,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, override := range overrides {
		override(comment)
	}
	if err := f.content.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.faker.Number(0, maxDays*24*60)) * time.Minute
	return time.Now().Add(-back)
}

// chance reports true with probability pct/100.
func (f *Factory) chance(pct int) bool {
	return f.faker.Number(1, 100) <= pct
}
