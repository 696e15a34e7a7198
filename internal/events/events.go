// Package events publishes activity events to the configured message
// broker. Publishing is best-effort: a broker failure is logged and the
// originating request proceeds unaffected.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/loopfeed/apiserver/internal/mq"
)

// ChannelActivity is the channel all activity events are published to.
const ChannelActivity = "activity"

// Event types.
const (
	TypePostCreated    = "post.created"
	TypePostLiked      = "post.liked"
	TypePostUnliked    = "post.unliked"
	TypeCommentCreated = "comment.created"
)

const publishTimeout = 5 * time.Second

// Event is one activity record, serialized as JSON on the wire.
type Event struct {
	Type       string    `json:"type"`
	ActorID    int       `json:"actor_id"`
	PostID     int       `json:"post_id"`
	CommentID  int       `json:"comment_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher emits activity events. A nil Publisher is valid and drops
// everything, which is how deployments without a broker run.
type Publisher struct {
	mq *mq.MQ
}

// NewPublisher constructs a Publisher over the given broker.
func NewPublisher(m *mq.MQ) *Publisher {
	return &Publisher{mq: m}
}

// PostCreated reports that a user published a post.
func (p *Publisher) PostCreated(actorID, postID int) {
	p.publish(Event{Type: TypePostCreated, ActorID: actorID, PostID: postID})
}

// PostLiked reports a like toggle outcome.
func (p *Publisher) PostLiked(actorID, postID int, liked bool) {
	eventType := TypePostLiked
	if !liked {
		eventType = TypePostUnliked
	}
	p.publish(Event{Type: eventType, ActorID: actorID, PostID: postID})
}

// CommentCreated reports that a user commented on a post.
func (p *Publisher) CommentCreated(actorID, postID, commentID int) {
	p.publish(Event{Type: TypeCommentCreated, ActorID: actorID, PostID: postID, CommentID: commentID})
}

func (p *Publisher) publish(event Event) {
	if p == nil || p.mq == nil {
		return
	}

	event.OccurredAt = time.Now()
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("events: marshal %s: %v", event.Type, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if _, err := p.mq.Publish(ctx, ChannelActivity, data, map[string]string{"type": event.Type}); err != nil {
		log.Printf("events: publish %s: %v", event.Type, err)
	}
}
