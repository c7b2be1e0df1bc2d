package workflow

// State is any closed status enumeration a state machine can run over.
// entity.DocumentStatus and entity.LineStatus both satisfy it.
type State interface {
	~string
	IsValid() bool
}
