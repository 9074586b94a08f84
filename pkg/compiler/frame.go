package compiler

import (
	"strings"
	"sync"

	"github.com/kristofer/smog/pkg/bytecode"
)

// frameClassCache memoizes synthesized frame-literal classes by their
// canonical match selector, process-wide, so that every frame literal of
// the same shape compiled anywhere in the program shares one Class —
// two frame literals with the same keys are pointer-equal classes, not
// merely structurally equal ones. Grounded on original_source's ast.rs
// thread_local FRAME_CACHE, adapted to a goroutine-safe package-level
// cache since the VM may load modules concurrently (see pkg/vm's
// singleflight-backed loader).
var (
	frameClassCache = make(map[string]*bytecode.Class)
	frameClassMu    sync.Mutex
)

// canonicalFrameSelector is the concatenation of every key with a
// trailing colon, e.g. keys {x, y} -> "x:y:". This is the cache key for
// frameClass and the selector the match handler sends to its do-arg — NOT
// the selector the match handler itself answers to, which is always ":".
func canonicalFrameSelector(keys []string) string {
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte(':')
	}
	return b.String()
}

// frameClass returns the (possibly cached) Class synthesized for a frame
// literal with these keys, building it on first use: a getter and setter
// handler per key, a uniform ":" match handler, and (for the zero-key
// frame only) a ":into:" handler.
func frameClass(keys []string) *bytecode.Class {
	selector := canonicalFrameSelector(keys)

	frameClassMu.Lock()
	defer frameClassMu.Unlock()

	if c, ok := frameClassCache[selector]; ok {
		return c
	}

	c := bytecode.NewClass("frame<" + selector + ">")

	for i, key := range keys {
		c.AddHandler(key, nil, []bytecode.Instruction{{Op: bytecode.IVal, Int: int64(i)}})

		rebuild := make([]bytecode.Instruction, 0, len(keys)+1)
		for j := range keys {
			if j == i {
				rebuild = append(rebuild, bytecode.Instruction{Op: bytecode.Local, Int: 0})
			} else {
				rebuild = append(rebuild, bytecode.Instruction{Op: bytecode.IVal, Int: int64(j)})
			}
		}
		rebuild = append(rebuild, bytecode.Instruction{Op: bytecode.NewSelf, Int: int64(len(keys))})
		c.AddHandler(key+":", []bytecode.Param{bytecode.ParamValue}, rebuild)
	}

	// The match handler's own dispatch selector is always literally ":",
	// regardless of key count — the same uniform "send a do-arg under :"
	// protocol every value answers to (frames, Bool's if/then/else, the
	// paren-group desugar). Its body pushes every ival then the do-arg
	// itself and sends the frame's *composite* keyword selector
	// ("x:y:" etc) to the do-arg, arity len(keys) — the do-arg is
	// expected to declare a handler for that composite selector to
	// receive the ivals positionally.
	matchBody := make([]bytecode.Instruction, 0, len(keys)+2)
	for i := range keys {
		matchBody = append(matchBody, bytecode.Instruction{Op: bytecode.IVal, Int: int64(i)})
	}
	matchBody = append(matchBody, bytecode.Instruction{Op: bytecode.Local, Int: 0})
	matchBody = append(matchBody, bytecode.Instruction{Op: bytecode.Send, Selector: selector, Int: int64(len(keys))})
	c.AddHandler(":", []bytecode.Param{bytecode.ParamDo}, matchBody)

	if len(keys) == 0 {
		// Empty-frame ":into:" handler: two Value params, body is a
		// single Send of selector+":" (here just ":") with arity 1.
		// Args stay in place on the stack per the ordinary-Send
		// calling convention, so this Send pops the second param as
		// target and forwards the first param as its sole argument —
		// `a{:into: b}` routes straight through to `b{: a}`.
		c.AddHandler(":into:", []bytecode.Param{bytecode.ParamValue, bytecode.ParamValue}, []bytecode.Instruction{
			{Op: bytecode.Send, Selector: selector + ":", Int: 1},
		})
	}

	frameClassCache[selector] = c
	return c
}
