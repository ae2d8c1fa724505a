// AngelaMos | 2026
// entity.go

package moderation

import (
	"time"
)

type ContentType string

const (
	ContentListing ContentType = "listing"
	ContentPost    ContentType = "post"
	ContentReply   ContentType = "reply"
	ContentUser    ContentType = "user"
)

type FlagStatus string

const (
	FlagPending  FlagStatus = "pending"
	FlagApproved FlagStatus = "approved"
	FlagRejected FlagStatus = "rejected"
)

type Flag struct {
	ID          string      `db:"id"           json:"id"`
	ContentType ContentType `db:"content_type" json:"content_type"`
	ContentID   string      `db:"content_id"   json:"content_id"`
	ReporterID  string      `db:"reporter_id"  json:"reporter_id"`
	Reason      string      `db:"reason"       json:"reason"`
	Details     string      `db:"details"      json:"details"`
	Status      FlagStatus  `db:"status"       json:"status"`
	ReviewedBy  *string     `db:"reviewed_by"  json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time  `db:"reviewed_at"  json:"reviewed_at,omitempty"`
	ReviewNotes *string     `db:"review_notes" json:"review_notes,omitempty"`
	CreatedAt   time.Time   `db:"created_at"   json:"created_at"`
}

// Action types recorded in the admin audit log.
const (
	ActionReviewFlag     = "review_flag"
	ActionRemoveListing  = "remove_listing"
	ActionFeatureListing = "feature_listing"
)

type AdminAction struct {
	ID         string    `db:"id"          json:"id"`
	AdminID    string    `db:"admin_id"    json:"admin_id"`
	ActionType string    `db:"action_type" json:"action_type"`
	TargetType string    `db:"target_type" json:"target_type"`
	TargetID   string    `db:"target_id"   json:"target_id"`
	Details    string    `db:"details"     json:"details"`
	CreatedAt  time.Time `db:"created_at"  json:"created_at"`
}

type Stats struct {
	Pending  int64 `db:"pending"  json:"pending"`
	Approved int64 `db:"approved" json:"approved"`
	Rejected int64 `db:"rejected" json:"rejected"`
}
