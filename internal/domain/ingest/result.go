package ingest

// ItemStatus is the processing outcome of a single ingested document.
type ItemStatus string

// Ingest item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of ingesting one document.
type Result struct {
	id     string
	status ItemStatus
	err    error
}

// NewOK creates a successful ingest result.
func NewOK(id string) Result { return Result{id: id, status: StatusOK} }

// NewError creates a failed ingest result.
func NewError(id string, err error) Result { return Result{id: id, status: StatusError, err: err} }

// ID returns the document identifier.
func (r Result) ID() string { return r.id }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }
