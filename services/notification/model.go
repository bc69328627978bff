package notification

import "time"

type Category string

const (
	CategoryDonation Category = "DONATION"
	CategoryActivity Category = "ACTIVITY"
)

// Message is what producers hand to a Sink.
type Message struct {
	UserID   string   `json:"user_id"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Category Category `json:"category"`
}

type Notification struct {
	ID        string    `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	UserID    string    `gorm:"column:user_id;type:varchar(64);index;not null" json:"user_id"`
	Title     string    `gorm:"column:title;type:varchar(255);not null" json:"title"`
	Message   string    `gorm:"column:message;type:text" json:"message"`
	Category  Category  `gorm:"column:category;type:varchar(32);not null" json:"category"`
	IsRead    bool      `gorm:"column:is_read;not null;default:false" json:"is_read"`
	CreatedAt time.Time `gorm:"column:created_at;index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
