package task

// Event is a state or progress change for one task, fanned out through the
// notification hub. Concrete kinds: Progress, Complete, Failed, Canceled.
type Event interface {
	TaskID() string
}

type taskEvent struct {
	id string
}

func (e taskEvent) TaskID() string { return e.id }

// Progress carries byte counts from one onProgress call.
type Progress struct {
	taskEvent
	Downloaded int64
	Total      int64
	Percent    float64
}

// Complete is published once, when the file is fully on disk.
type Complete struct {
	taskEvent
	Path string
}

// Failed is published when the fetch collaborator raised a failure.
type Failed struct {
	taskEvent
	Kind    FailureKind
	Message string
}

// Canceled is published when the worker has unwound after a cancel request.
// It is a user-requested terminal state, distinct from Failed.
type Canceled struct {
	taskEvent
}
