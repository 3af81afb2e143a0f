package models

import (
	"strings"
	"time"
)

// TargetType is the kind of content a vote or report points at.
type TargetType string

const (
	TargetPost    TargetType = "post"
	TargetComment TargetType = "comment"
)

// ParseTargetType validates a target type coming from a caller.
func ParseTargetType(raw string) (TargetType, error) {
	t := TargetType(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", NewValidationError("target_type must be post or comment")
	}
	return t, nil
}

func (t TargetType) Valid() bool {
	return t == TargetPost || t == TargetComment
}

// Vote values. Zero is never stored; it means "no vote".
const (
	VoteUp   int8 = 1
	VoteDown int8 = -1
)

// Favorite is set membership of a post in a user's favorites.
type Favorite struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	PostID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Favorite) TableName() string { return "favorites" }

// FavoriteOrder selects the ordering of a favorites listing.
type FavoriteOrder string

const (
	FavoritedDesc   FavoriteOrder = "favorited_desc"
	PostCreatedDesc FavoriteOrder = "post_created_desc"
)

// ParseFavoriteOrder falls back to FavoritedDesc on empty input.
func ParseFavoriteOrder(raw string) (FavoriteOrder, error) {
	switch FavoriteOrder(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FavoritedDesc:
		return FavoritedDesc, nil
	case PostCreatedDesc:
		return PostCreatedDesc, nil
	}
	return "", NewValidationError("order must be favorited_desc or post_created_desc")
}

// Vote is at most one live value per (user, target_type, target_id).
type Vote struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;uniqueIndex:idx_votes_user_target,priority:1" json:"user_id"`
	TargetType TargetType `gorm:"size:16;not null;uniqueIndex:idx_votes_user_target,priority:2;index:idx_votes_target,priority:1" json:"target_type"`
	TargetID   uint       `gorm:"not null;uniqueIndex:idx_votes_user_target,priority:3;index:idx_votes_target,priority:2" json:"target_id"`
	Value      int8       `gorm:"not null;check:chk_votes_value,value IN (1,-1)" json:"value"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (Vote) TableName() string { return "votes" }

// VoteTally counts the up and down votes of one target.
type VoteTally struct {
	TargetType TargetType `json:"target_type"`
	TargetID   uint       `json:"target_id"`
	Upvotes    int64      `json:"upvotes"`
	Downvotes  int64      `json:"downvotes"`
}

// Score is upvotes minus downvotes.
func (t VoteTally) Score() int64 { return t.Upvotes - t.Downvotes }

// VoteTarget identifies a votable item.
type VoteTarget struct {
	TargetType TargetType `json:"target_type"`
	TargetID   uint       `json:"target_id"`
}
