// Package rulespec parses Markdown rule documents into addressable rules.
//
// A rule document is named "<ext1>[&ext2...].<type>.md". Each rule is a
// heading ending in a backticked, bracketed identifier:
//
//	## Component files use UpperCamel names `[JsTs.FileName]`
//
//	> - severity `warn`
//	> - includes `*.tsx` `*.jsx`
//	> - override `[Base.Naming]`
//
// Rule ids are dot-segmented and hierarchical: "JsTs.FileName" owns
// "JsTs.FileName.UpperCamel". Documents loaded later replace rules with the
// same id from documents loaded earlier (see [Deduplicate]). A [Snapshot] is
// the immutable, de-duplicated document set handed to every resolution step.
package rulespec
