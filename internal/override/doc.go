// Package override filters issues against the rules of a [rulespec.Snapshot].
//
// An override declared by a rule document suppresses findings of the target
// rule id (and every id nested under it), but only for files inside the
// declaring document's include scope. An empty scope is global.
//
// Every function here takes its inputs by value and returns a new slice;
// stages can be composed in any order without hidden shared state.
package override
