package entities

// Failure describes the first stage that failed in a pipeline invocation.
// Message is the leaf's error text, unmodified.
type Failure struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
}

func (f Failure) Error() string {
	return f.Message
}

// OperationResult is the outcome of one pipeline invocation. Exactly one of
// the success payload or the failure is populated; the constructors below are
// the only way to build one.
type OperationResult struct {
	text    string
	audio   *AudioResource
	failure *Failure
}

// TextResult builds a successful result carrying text
func TextResult(text string) OperationResult {
	return OperationResult{text: text}
}

// AudioResult builds a successful result carrying generated audio
func AudioResult(audio *AudioResource) OperationResult {
	return OperationResult{audio: audio}
}

// FailedResult builds a failed result for the given stage
func FailedResult(stage Stage, message string) OperationResult {
	return OperationResult{failure: &Failure{Stage: stage, Message: message}}
}

// Succeeded reports whether the result is a success
func (r OperationResult) Succeeded() bool {
	return r.failure == nil
}

// Text returns the text payload. Empty for audio results and failures.
func (r OperationResult) Text() string {
	return r.text
}

// Audio returns the audio payload, or nil if the result carries text or a failure
func (r OperationResult) Audio() *AudioResource {
	return r.audio
}

// HasAudio reports whether the result carries generated audio
func (r OperationResult) HasAudio() bool {
	return r.failure == nil && r.audio != nil
}

// Failure returns the failure, or nil on success
func (r OperationResult) Failure() *Failure {
	return r.failure
}
