package bus

// Command is a message carrying intent to change state. It declares its
// response type R by embedding CommandResult[R]. A command type has a single handler.
//
//	type AddProduct struct {
//	    bus.CommandResult[uint64]
//	    SKU string
//	}
type Command[R any] interface {
	commandResult(R)
}

// CommandResult is embedded in a command type to declare its response type.
type CommandResult[R any] struct{}

func (CommandResult[R]) commandResult(R) {}

// Query is a side-effect-free read request. It declares its response type R by
// embedding QueryResult[R]. A query type has a single handler.
type Query[R any] interface {
	queryResult(R)
}

// QueryResult is embedded in a query type to declare its response type.
type QueryResult[R any] struct{}

func (QueryResult[R]) queryResult(R) {}
