// Package glace drives one build of a source tree into an output tree.
//
// A build walks the source, registers every bundleable reference with two
// bundle invokers (browser and server), and moves every document through the
// same three barriers:
//
//	register -> client pass -> client resolve -> static pass -> static resolve -> finalize
//
// Each pass runs exactly once per build and only after every document has
// finished the preceding phase. Output is written to a staging directory and
// promoted over the output directory only when every stage succeeded.
package glace
