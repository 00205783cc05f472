package tool

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/hupe1980/analystloop/internal/util"
)

// QueryArgs are the arguments of the query tool.
type QueryArgs struct {
	Query       string   `json:"query" description:"The SQL query to run."`
	ColumnNames []string `json:"column_names" description:"Ordered names for the columns the query returns, one per selected expression."`
	DatasetName string   `json:"dataset_name" description:"Identifier to store the result under, usable as a Python variable name."`
}

// CodeArgs are the arguments of the code tool.
type CodeArgs struct {
	Code string `json:"code" description:"Python code to execute. Datasets are available as DataFrame variables."`
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reservedNames cannot be assigned in the staging preamble: Python keywords
// and the pandas alias every dataset is loaded through.
var reservedNames = map[string]struct{}{
	"pd": {}, "False": {}, "None": {}, "True": {}, "and": {}, "as": {}, "assert": {},
	"async": {}, "await": {}, "break": {}, "class": {}, "continue": {}, "def": {},
	"del": {}, "elif": {}, "else": {}, "except": {}, "finally": {}, "for": {},
	"from": {}, "global": {}, "if": {}, "import": {}, "in": {}, "is": {},
	"lambda": {}, "nonlocal": {}, "not": {}, "or": {}, "pass": {}, "raise": {},
	"return": {}, "try": {}, "while": {}, "with": {}, "yield": {},
}

// ValidDatasetName reports whether name can be used as a dataset and variable name.
func ValidDatasetName(name string) bool {
	if _, reserved := reservedNames[name]; reserved {
		return false
	}
	return identifier.MatchString(name)
}

// DecodeQueryArgs decodes and validates raw query tool arguments.
func DecodeQueryArgs(raw string) (QueryArgs, error) {
	var args QueryArgs
	if err := decode(Query, raw, &args); err != nil {
		return QueryArgs{}, err
	}

	switch {
	case strings.TrimSpace(args.Query) == "":
		return QueryArgs{}, validationError(Query.Name, "query must not be empty", nil)
	case len(args.ColumnNames) == 0:
		return QueryArgs{}, validationError(Query.Name, "column_names must name at least one column", nil)
	case !ValidDatasetName(args.DatasetName):
		return QueryArgs{}, validationError(Query.Name,
			fmt.Sprintf("dataset_name %q must be a valid identifier (letters, digits, underscore) and not a Python keyword or pd", args.DatasetName), nil)
	}

	return args, nil
}

// DecodeCodeArgs decodes and validates raw code tool arguments.
func DecodeCodeArgs(raw string) (CodeArgs, error) {
	var args CodeArgs
	if err := decode(Code, raw, &args); err != nil {
		return CodeArgs{}, err
	}

	if strings.TrimSpace(args.Code) == "" {
		return CodeArgs{}, validationError(Code.Name, "code must not be empty", nil)
	}

	return args, nil
}

func decode(spec Spec, raw string, dst any) error {
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}

	var params map[string]any
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return validationError(spec.Name, "arguments are not a JSON object", err)
	}

	if err := util.ValidateParameters(params, spec.Parameters); err != nil {
		return validationError(spec.Name, err.Error(), err)
	}

	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return validationError(spec.Name, "arguments do not match the schema", err)
	}

	return nil
}

func validationError(tool, msg string, err error) *ToolError {
	return &ToolError{Tool: tool, Code: CodeValidation, Message: msg, Err: err}
}
