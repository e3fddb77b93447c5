package protocol

// EventType discriminates the variant carried by an Event. Exactly one of
// the corresponding payload fields on Event is non-nil for a given Type,
// following the single-discriminator-plus-payload-pointer shape used
// throughout this codebase's event model.
type EventType string

const (
	EventTaskStarted       EventType = "task_started"
	EventTurnStarted       EventType = "turn_started"
	EventTurnCompleted     EventType = "turn_completed"
	EventToolCallRequested EventType = "tool_call_requested"
	EventToolCallCompleted EventType = "tool_call_completed"
	EventToolCallFailed    EventType = "tool_call_failed"
	EventTaskComplete      EventType = "task_complete"
	EventTaskError         EventType = "task_error"
	EventStreamChunk       EventType = "stream_chunk"
	EventStreamToolCall    EventType = "stream_tool_call"
	EventStreamComplete    EventType = "stream_complete"
	EventPublishMessage    EventType = "publish_message"
)

// Event is the tagged-variant protocol event threaded between the ReAct
// executor, the actor runtime, and the telemetry mapper. Construct one
// with the New* helpers below rather than populating fields by hand; each
// helper sets Type and exactly the payload field that belongs to it.
type Event struct {
	Type EventType `json:"type"`

	TaskStarted       *TaskStartedPayload       `json:"task_started,omitempty"`
	TurnStarted       *TurnStartedPayload       `json:"turn_started,omitempty"`
	TurnCompleted     *TurnCompletedPayload     `json:"turn_completed,omitempty"`
	ToolCallRequested *ToolCallRequestedPayload `json:"tool_call_requested,omitempty"`
	ToolCallCompleted *ToolCallCompletedPayload `json:"tool_call_completed,omitempty"`
	ToolCallFailed    *ToolCallFailedPayload    `json:"tool_call_failed,omitempty"`
	TaskComplete      *TaskCompletePayload      `json:"task_complete,omitempty"`
	TaskError         *TaskErrorPayload         `json:"task_error,omitempty"`
	StreamChunk       *StreamChunkPayload       `json:"stream_chunk,omitempty"`
	StreamToolCall    *StreamToolCallPayload    `json:"stream_tool_call,omitempty"`
	StreamComplete    *StreamCompletePayload    `json:"stream_complete,omitempty"`
	PublishMessage    *PublishMessagePayload    `json:"publish_message,omitempty"`
}

type TaskStartedPayload struct {
	SubID           string `json:"sub_id"`
	ActorID         string `json:"actor_id"`
	ActorName       string `json:"actor_name"`
	TaskDescription string `json:"task_description"`
}

type TurnStartedPayload struct {
	SubID    string `json:"sub_id"`
	ActorID  string `json:"actor_id"`
	TurnNum  int    `json:"turn_number"`
	MaxTurns int    `json:"max_turns"`
}

type TurnCompletedPayload struct {
	SubID     string `json:"sub_id"`
	ActorID   string `json:"actor_id"`
	TurnNum   int    `json:"turn_number"`
	FinalTurn bool   `json:"final_turn"`
}

type ToolCallRequestedPayload struct {
	SubID     string `json:"sub_id"`
	ActorID   string `json:"actor_id"`
	ID        string `json:"id"`
	ToolName  string `json:"tool_name"`
	Arguments string `json:"arguments"`
}

type ToolCallCompletedPayload struct {
	SubID    string `json:"sub_id"`
	ActorID  string `json:"actor_id"`
	ID       string `json:"id"`
	ToolName string `json:"tool_name"`
	Result   any    `json:"result"`
}

type ToolCallFailedPayload struct {
	SubID    string `json:"sub_id"`
	ActorID  string `json:"actor_id"`
	ID       string `json:"id"`
	ToolName string `json:"tool_name"`
	Error    string `json:"error"`
}

type TaskCompletePayload struct {
	SubID     string           `json:"sub_id"`
	ActorID   string           `json:"actor_id"`
	ActorName string           `json:"actor_name"`
	Result    ReActAgentOutput `json:"result"`
}

type TaskErrorPayload struct {
	SubID   string `json:"sub_id"`
	ActorID string `json:"actor_id"`
	Error   string `json:"error"`
}

type StreamChunkPayload struct {
	SubID string `json:"sub_id"`
	Chunk string `json:"chunk"`
}

type StreamToolCallPayload struct {
	SubID    string   `json:"sub_id"`
	ToolCall ToolCall `json:"tool_call"`
}

type StreamCompletePayload struct {
	SubID string `json:"sub_id"`
}

type PublishMessagePayload struct {
	TopicName string `json:"topic_name"`
	TopicType string `json:"topic_type"`
	Payload   []byte `json:"payload"`
}

func NewTaskStarted(subID, actorID, actorName, taskDescription string) Event {
	return Event{Type: EventTaskStarted, TaskStarted: &TaskStartedPayload{subID, actorID, actorName, taskDescription}}
}

func NewTurnStarted(subID, actorID string, turn, maxTurns int) Event {
	return Event{Type: EventTurnStarted, TurnStarted: &TurnStartedPayload{subID, actorID, turn, maxTurns}}
}

func NewTurnCompleted(subID, actorID string, turn int, finalTurn bool) Event {
	return Event{Type: EventTurnCompleted, TurnCompleted: &TurnCompletedPayload{subID, actorID, turn, finalTurn}}
}

func NewToolCallRequested(subID, actorID, id, toolName, arguments string) Event {
	return Event{Type: EventToolCallRequested, ToolCallRequested: &ToolCallRequestedPayload{subID, actorID, id, toolName, arguments}}
}

func NewToolCallCompleted(subID, actorID, id, toolName string, result any) Event {
	return Event{Type: EventToolCallCompleted, ToolCallCompleted: &ToolCallCompletedPayload{subID, actorID, id, toolName, result}}
}

func NewToolCallFailed(subID, actorID, id, toolName, errMsg string) Event {
	return Event{Type: EventToolCallFailed, ToolCallFailed: &ToolCallFailedPayload{subID, actorID, id, toolName, errMsg}}
}

func NewTaskComplete(subID, actorID, actorName string, result ReActAgentOutput) Event {
	return Event{Type: EventTaskComplete, TaskComplete: &TaskCompletePayload{subID, actorID, actorName, result}}
}

func NewTaskError(subID, actorID, errMsg string) Event {
	return Event{Type: EventTaskError, TaskError: &TaskErrorPayload{subID, actorID, errMsg}}
}

func NewStreamChunk(subID, chunk string) Event {
	return Event{Type: EventStreamChunk, StreamChunk: &StreamChunkPayload{subID, chunk}}
}

func NewStreamToolCall(subID string, tc ToolCall) Event {
	return Event{Type: EventStreamToolCall, StreamToolCall: &StreamToolCallPayload{subID, tc}}
}

func NewStreamComplete(subID string) Event {
	return Event{Type: EventStreamComplete, StreamComplete: &StreamCompletePayload{subID}}
}

func NewPublishMessage(topicName, topicType string, payload []byte) Event {
	return Event{Type: EventPublishMessage, PublishMessage: &PublishMessagePayload{topicName, topicType, payload}}
}

// Droppable reports whether an event may be dropped under back-pressure
// rather than block the publisher. Only StreamChunk (model-delta) traffic
// is droppable; every lifecycle event must be delivered for the invariants
// in the testable-properties section to hold.
func (e Event) Droppable() bool {
	return e.Type == EventStreamChunk
}
