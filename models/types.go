// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// User role constants
const (
	RoleAdmin = "admin"
	RoleCoder = "coder"
)

// Category ids form a closed set of four. Anything outside the set is
// rejected by the control surface.
const (
	CategoryMin = 1
	CategoryMax = 4
)

// CategoryNames maps category ids to display labels.
var CategoryNames = map[int]string{
	1: "Category 1",
	2: "Category 2",
	3: "Category 3",
	4: "Category 4",
}

// ValidCategory reports whether id is in the fixed category set.
func ValidCategory(id int) bool {
	return id >= CategoryMin && id <= CategoryMax
}

// ValidRole reports whether role is one of the two known roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleCoder
}

// Request types

type SignInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateUserRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	Role            string `json:"role"`
	AssignedBatchID string `json:"assigned_batch_id"`
}

type AddTextsRequest struct {
	BatchID string   `json:"batch_id"`
	Texts   []string `json:"texts"`
}

type SelectCategoryRequest struct {
	Category int `json:"category"`
}

type FlagNotesRequest struct {
	Notes string `json:"notes"`
}

type KeyRequest struct {
	Key string `json:"key"`
}

// Response types

type SignInResponse struct {
	Token string      `json:"token"`
	User  UserProfile `json:"user"`
}

type CreateUserResponse struct {
	UserID string `json:"user_id"`
}

type AddTextsResponse struct {
	TextIDs []string `json:"text_ids"`
}

type CommitResponse struct {
	ClassificationID string `json:"classification_id"`
	Position         int    `json:"position"`
	Committed        bool   `json:"committed"`
}

type KeyResponse struct {
	ClassificationID string `json:"classification_id,omitempty"`
	Committed        bool   `json:"committed"`
}

// AnnotationState is the coder's view of their in-progress session.
type AnnotationState struct {
	Waiting          bool      `json:"waiting"`
	Position         int       `json:"position"`
	Total            int       `json:"total"`
	Item             *TextItem `json:"item,omitempty"`
	Draft            Draft     `json:"draft"`
	PriorSubmissions int       `json:"prior_submissions"`
}

// UserSummary is a profile row joined with progress counts for the
// admin dashboard.
type UserSummary struct {
	UserProfile
	Progress        int    `json:"progress"`
	ProgressPercent int    `json:"progress_percent"`
	LastLoginAgo    string `json:"last_login_ago,omitempty"`
}

// FlaggedItem is a flagged classification joined to the coder's username.
// Coder falls back to the raw user id when no profile matches.
type FlaggedItem struct {
	ClassificationID string    `json:"classification_id"`
	TextID           string    `json:"text_id"`
	Coder            string    `json:"coder"`
	Notes            string    `json:"notes"`
	Timestamp        time.Time `json:"timestamp"`
	When             string    `json:"when"`
}

// Domain types

type UserProfile struct {
	ID              string     `json:"id"`
	Username        string     `json:"username"`
	Role            string     `json:"role"`
	AssignedBatchID string     `json:"assigned_batch_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	CreatedBy       string     `json:"created_by,omitempty"`
	LastLogin       *time.Time `json:"last_login,omitempty"`
}

// TextItem is immutable once created; batch membership is fixed at creation.
type TextItem struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	BatchID string `json:"batch_id"`
}

// Classification is an append-only submission record. Multiple submissions
// for the same (user, text) pair are allowed and all persist.
type Classification struct {
	ID        string    `json:"id"`
	TextID    string    `json:"text_id"`
	UserID    string    `json:"user_id"`
	Category  int       `json:"category"`
	Timestamp time.Time `json:"timestamp"`
	Flagged   bool      `json:"flagged"`
	FlagNotes *string   `json:"flag_notes"`
}

// Draft is the uncommitted classification choice for the displayed item.
// Category 0 means no category selected yet.
type Draft struct {
	Category  int    `json:"category"`
	Flagged   bool   `json:"flagged"`
	FlagNotes string `json:"flag_notes"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
