// Package testutil contains helper builders and fakes used across tests to
// reduce boilerplate when constructing tool calls and conversations and when
// standing in for the query and sandbox collaborators. They are not intended
// for production usage.
package testutil
