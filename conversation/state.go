package conversation

// State is a step of the question loop
type State int

const (
	// StateIdle is the state before Run starts
	StateIdle State = iota
	// StateAskingQuestion is entered when the next question is appended to history
	StateAskingQuestion
	// StateAwaitingModelResponse is entered while the model call is in flight
	StateAwaitingModelResponse
	// StateRecordingTurn is entered when the answer and its usage are recorded
	StateRecordingTurn
	// StateFinished is entered once no questions remain or a call failed
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAskingQuestion:
		return "asking_question"
	case StateAwaitingModelResponse:
		return "awaiting_model_response"
	case StateRecordingTurn:
		return "recording_turn"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// TransitionFunc observes state changes
type TransitionFunc func(from, to State)
