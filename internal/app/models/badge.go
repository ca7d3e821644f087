package models

// Badge is a static badge definition.
type Badge struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AwardedBadge is a badge the user holds, flagged when awarded by the current call.
type AwardedBadge struct {
	Badge Badge `json:"badge"`
	IsNew bool  `json:"isNew"`
}
