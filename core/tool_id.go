package core

// ToolID enumerates the tools the model may call.
type ToolID int

const (
	// ToolUnknown is any name the model invents.
	ToolUnknown ToolID = iota
	// ToolQuery runs a relational query and stores the rows as a dataset.
	ToolQuery
	// ToolCode runs analysis code in the remote sandbox.
	ToolCode
)

const (
	// QueryToolName is the declared name of ToolQuery.
	QueryToolName = "query_database"
	// CodeToolName is the declared name of ToolCode.
	CodeToolName = "execute_python"
)

// String returns the declared tool name.
func (t ToolID) String() string {
	switch t {
	case ToolQuery:
		return QueryToolName
	case ToolCode:
		return CodeToolName
	default:
		return "unknown"
	}
}

// ParseToolID maps a declared tool name to its ToolID.
func ParseToolID(name string) ToolID {
	switch name {
	case QueryToolName:
		return ToolQuery
	case CodeToolName:
		return ToolCode
	default:
		return ToolUnknown
	}
}
