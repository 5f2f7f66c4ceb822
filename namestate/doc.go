// Package namestate holds the stack machine that builds transaction names.
//
// A NameState starts open. Framework code and the span processor push and pop path
// frames, set a prefix and a verb, and optionally mark a snapshot of the stack.
// When the owning transaction ends the state is frozen and every further mutation is
// ignored:
//
//	ns := namestate.New("Api", "GET", "/", "users")
//	ns.AppendPath("1", nil)
//	name, _ := ns.GetName() // "Api/GET//users/1"
//	ns.Freeze()
//	ns.AppendPath("ignored", nil) // returns false
//
// GetPath distinguishes "nothing recorded" (ok == false) from an empty path, which
// lets callers fall back to URL based naming when no route was ever asserted.
package namestate
