package domain

const (
	EventNameSessionJoined = "session.joined"
	EventNameSessionLeft   = "session.left"
	EventNameQuizMissed    = "quiz.missed"
	EventNameQuizCached    = "quiz.cached"
)

type EventSessionJoined struct {
	Session Session
}

func (EventSessionJoined) Name() string { return EventNameSessionJoined }

type EventSessionLeft struct {
	SessionID string
}

func (EventSessionLeft) Name() string { return EventNameSessionLeft }

// EventQuizMissed is published when a quiz request found no valid cached version.
type EventQuizMissed struct {
	Topic string
	Count int
}

func (EventQuizMissed) Name() string { return EventNameQuizMissed }

type EventQuizCached struct {
	Key      string
	Quiz     Quiz
	Versions int
}

func (EventQuizCached) Name() string { return EventNameQuizCached }
