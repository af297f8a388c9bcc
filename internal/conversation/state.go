package conversation

// State is a snapshot of one conversation.
//
// Transitions are pure: each method returns a new State and leaves the receiver
// untouched, so the state machine can be exercised without a Controller.
type State struct {
	Messages     []Message `json:"messages"`
	Composing    bool      `json:"composing"`
	PendingInput string    `json:"pending_input"`
	// InFlight counts submitted messages whose reply has not been appended yet.
	InFlight int `json:"in_flight"`
}

// NewState starts a conversation with a seeded assistant greeting.
func NewState(greeting Message) State {
	return State{Messages: []Message{greeting}}
}

// Clone returns a copy that shares no mutable memory with s.
func (s State) Clone() State {
	s.Messages = append([]Message(nil), s.Messages...)
	return s
}

// Submit appends a user message, clears the staged input and marks a reply as outstanding.
func (s State) Submit(user Message) State {
	next := s
	next.Messages = appendMessage(s.Messages, user)
	next.PendingInput = ""
	next.InFlight++
	next.Composing = true
	return next
}

// Resolve appends the assistant reply for the oldest outstanding user message.
func (s State) Resolve(reply Message) State {
	next := s
	next.Messages = appendMessage(s.Messages, reply)
	if next.InFlight > 0 {
		next.InFlight--
	}
	next.Composing = next.InFlight > 0
	return next
}

// SetPendingInput replaces the staged input text.
func (s State) SetPendingInput(text string) State {
	next := s
	next.PendingInput = text
	return next
}

// NextSeq returns the sequence number the next appended message will get.
func (s State) NextSeq() int {
	return len(s.Messages) + 1
}

// Last returns the most recent message.
func (s State) Last() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// appendMessage always copies so that earlier snapshots never observe later appends.
func appendMessage(log []Message, m Message) []Message {
	out := make([]Message, len(log), len(log)+1)
	copy(out, log)
	return append(out, m)
}
