package pipeline

// Stage names a step of an analysis run.
type Stage string

const (
	StageInput    Stage = "input"
	StageModel    Stage = "model"
	StageDownload Stage = "download"
	StagePrepare  Stage = "prepare"
	StageFeatures Stage = "features"
	StagePredict  Stage = "predict"
)

// Status is the state of a stage.
type Status string

const (
	StatusStarted Status = "started"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Event reports stage progress. Message is user-facing and may be empty.
type Event struct {
	Stage   Stage  `json:"stage"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// ProgressFunc receives progress events.
type ProgressFunc func(Event)
