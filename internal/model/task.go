package model

type TaskType string

const (
	TaskVisit TaskType = "visit"
	TaskShare TaskType = "share"
)

// Task is a static catalog entry, not user data.
type Task struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Reward      int      `json:"reward"`
	Type        TaskType `json:"type"`
	URL         string   `json:"url,omitempty"`
}
