// Package trash bounds the native stack depth of cascading destruction.
//
// Destroying one object can drop the last reference to the objects it contains, whose
// destruction drops further references, and so on. A Stack brackets every destruction with
// BeginDestroy/EndDestroy. Once nesting passes the limit, further destructions are parked on
// a heap-resident pending list, and the outermost EndDestroy drains that list in a loop.
// A chain of any length is then destroyed with at most limit nested calls.
//
// A Stack is not safe for concurrent use.
package trash
