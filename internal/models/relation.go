package models

import (
	"strings"
	"time"
)

// RelationKind names one of the three directed user-to-user relations.
type RelationKind string

const (
	RelationFriend RelationKind = "friend"
	RelationFollow RelationKind = "follow"
	RelationBlock  RelationKind = "block"
)

// RelationKinds lists every relation kind in a stable order.
var RelationKinds = []RelationKind{RelationFriend, RelationFollow, RelationBlock}

// ParseRelationKind accepts singular or plural route forms ("follow", "follows").
func ParseRelationKind(raw string) (RelationKind, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimSuffix(s, "s")
	kind := RelationKind(s)
	if !kind.Valid() {
		return "", NewValidationError("unknown relation kind: " + raw)
	}
	return kind, nil
}

// Valid reports whether k is a known relation kind.
func (k RelationKind) Valid() bool {
	switch k {
	case RelationFriend, RelationFollow, RelationBlock:
		return true
	}
	return false
}

// Table returns the edge table backing k.
func (k RelationKind) Table() string {
	switch k {
	case RelationFriend:
		return UserFriend{}.TableName()
	case RelationFollow:
		return UserFollow{}.TableName()
	case RelationBlock:
		return UserBlock{}.TableName()
	}
	return ""
}

// RelationEdge is a directed (subject -> object) edge. The composite primary
// key is the uniqueness constraint on the pair.
type RelationEdge struct {
	SubjectID uint      `gorm:"primaryKey;autoIncrement:false" json:"subject_id"`
	ObjectID  uint      `gorm:"primaryKey;autoIncrement:false;index" json:"object_id"`
	CreatedAt time.Time `json:"created_at"`
}

// UserFriend is a friend edge.
type UserFriend struct {
	RelationEdge
}

func (UserFriend) TableName() string { return "user_friends" }

// UserFollow is a follow edge.
type UserFollow struct {
	RelationEdge
}

func (UserFollow) TableName() string { return "user_follows" }

// UserBlock is a block edge.
type UserBlock struct {
	RelationEdge
}

func (UserBlock) TableName() string { return "user_blocks" }

// RelationStatus is the viewer's relation to a target user in both directions.
type RelationStatus struct {
	Friend     bool `json:"friend"`
	FriendOf   bool `json:"friend_of"`
	Following  bool `json:"following"`
	FollowedBy bool `json:"followed_by"`
	Blocking   bool `json:"blocking"`
	BlockedBy  bool `json:"blocked_by"`
}

// Set records one directed flag. outgoing means viewer -> target.
func (s *RelationStatus) Set(kind RelationKind, outgoing, value bool) {
	switch kind {
	case RelationFriend:
		if outgoing {
			s.Friend = value
		} else {
			s.FriendOf = value
		}
	case RelationFollow:
		if outgoing {
			s.Following = value
		} else {
			s.FollowedBy = value
		}
	case RelationBlock:
		if outgoing {
			s.Blocking = value
		} else {
			s.BlockedBy = value
		}
	}
}
