package jobs

import "time"

// Allocation はユーザーごとの資産配分（%）です。合計は常に 100 になります。
type Allocation struct {
	UserID    string    `json:"userId"`
	Stocks    int       `json:"stocks"`
	Funds     int       `json:"funds"`
	Bonds     int       `json:"bonds"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TaskPayload は資産配分ジョブのペイロードです。
type TaskPayload struct {
	UserID string `json:"userId"`
}
