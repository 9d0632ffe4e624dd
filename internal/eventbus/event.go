package eventbus

import "time"

// Event types published by the content layer.
const (
	// EventPostPublished fires when a blog post goes live, either from the
	// admin API or the scheduler. Payload: {"id": "<post id>"}.
	EventPostPublished = "content.post.published"
	// EventProjectPublished fires when a project is added. Payload:
	// {"id": "<project id>"}.
	EventProjectPublished = "content.project.published"
)

// Event represents an application event published to the bus.
type Event struct {
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   map[string]string `json:"payload"`
}

// Listener is a function that handles an event.
type Listener func(Event)
