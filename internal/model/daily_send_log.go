package model

// DailySendLog holds one counter row per calendar date (local date string,
// "2006-01-02"). Incremented once per successful send, never deleted.
type DailySendLog struct {
	Date  string `json:"date" gorm:"type:varchar(10);primaryKey"`
	Count int    `json:"count" gorm:"default:0"`
}

// TableName specifies the table name for DailySendLog
func (DailySendLog) TableName() string {
	return "daily_send_log"
}
