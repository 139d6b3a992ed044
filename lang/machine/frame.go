package machine

import "github.com/mna/sprout/lang/value"

// frame is one activation record, grounded on melon's call_frame
// (original_source/src/vm.c: "{return_ip, closure, bp}") and pushed/popped
// from Machine.frames the same way melon's callstack_push/callstack_ret
// maintain a parallel vector of frames rather than an intrusive linked
// list.
type frame struct {
	closure *value.Closure
	ip      int
	bp      int // index into Machine.stack where this frame's locals start
}
