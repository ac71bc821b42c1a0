package domain

// Message is the fetched content of one mailbox message, already flattened to
// the fields the classifier and notifier need.
type Message struct {
	ID          string
	ThreadID    string
	SenderEmail string
	SenderName  string
	Subject     string
	Snippet     string
	BodyText    string
}

// AppState holds small explicitly-initialized runtime values, such as the
// registered notification chat id.
type AppState struct {
	Key       string `json:"key" gorm:"primaryKey"`
	Value     string `json:"value"`
	UpdatedAt int64  `json:"updated_at" gorm:"autoUpdateTime"`
}

func (AppState) TableName() string {
	return "app_state"
}
