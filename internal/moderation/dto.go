// AngelaMos | 2026
// dto.go

package moderation

type FlagRequest struct {
	ContentType string `json:"content_type" validate:"required,oneof=listing post reply user"`
	ContentID   string `json:"content_id"   validate:"required,uuid"`
	Reason      string `json:"reason"       validate:"required,min=2,max=100"`
	Details     string `json:"details"      validate:"max=2000"`
}

type ReviewRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
	Notes  string `json:"notes"  validate:"max=2000"`
}

type FeatureRequest struct {
	Days int `json:"days" validate:"required,min=1,max=90"`
}

type RemoveRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}
