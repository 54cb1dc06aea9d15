package storage

import "github.com/rsms/evredis/protocol"

// Result is what a Writer or Reader sends back in response to an Operation.
// Err is populated only for actor-level misroutes (wrong access kind sent to
// the wrong actor); ordinary command failures such as WRONGTYPE travel as a
// protocol.Err inside Response, not as Err here.
type Result struct {
	Response protocol.Response
	Err      error
}

// writerMsg is the mailbox element type the Writer's run loop consumes.
type writerMsg interface {
	isWriterMsg()
}

// operationMsg wraps a client-issued command together with where to deliver
// its Result. Reply is nil for fire-and-forget (async) submissions.
type operationMsg struct {
	cmd   protocol.Command
	reply chan<- Result
}

func (*operationMsg) isWriterMsg() {}

// ttlExpireMsg is how a time.AfterFunc callback hands control back to the
// single writer goroutine instead of mutating the store from its own
// goroutine; operationID pins the identity check that makes the deletion
// self-cancel if the key was overwritten since the timer was scheduled.
type ttlExpireMsg struct {
	key         []byte
	operationID uint64
}

func (*ttlExpireMsg) isWriterMsg() {}
