package transfer

type PostCreation struct {
	Caption       string   `json:"caption"`
	Hashtags      []string `json:"hashtags"`
	Platforms     []string `json:"platforms"`
	ScheduledTime string   `json:"scheduled_time"`
	Draft         bool     `json:"draft"`
}

type PostRejection struct {
	PostID int64  `json:"post_id"`
	Reason string `json:"reason"`
}
