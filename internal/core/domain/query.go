package domain

import "strings"

// QueryType is the closed set of query classifications the router understands.
type QueryType string

const (
	QueryTypeFactual       QueryType = "factual"
	QueryTypeSummarization QueryType = "summarization"
)

// KnownQueryTypes lists every valid QueryType in declaration order.
func KnownQueryTypes() []QueryType {
	return []QueryType{QueryTypeFactual, QueryTypeSummarization}
}

// ParseQueryType maps free text onto the closed enum. The boolean reports
// whether the input named a known type.
func ParseQueryType(s string) (QueryType, bool) {
	switch QueryType(strings.ToLower(strings.TrimSpace(s))) {
	case QueryTypeFactual:
		return QueryTypeFactual, true
	case QueryTypeSummarization:
		return QueryTypeSummarization, true
	default:
		return "", false
	}
}
