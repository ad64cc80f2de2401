// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msq

import "code.hybscloud.com/iox"

// ErrWouldBlock is returned by the non-blocking calls when they cannot
// complete now: TryPop on an empty queue, TryPush on a full [Bounded].
//
// The blocking calls never return it. Pop treats an empty queue as a wait
// condition and keeps trying under the queue's [WaitStrategy]; Push on an
// [Unbounded] queue has nothing to wait for. A caller that needs a
// deadline or cancellation polls TryPop instead:
//
//	for {
//	    v, err := q.TryPop()
//	    if err == nil {
//	        return v, nil
//	    }
//	    if ctx.Err() != nil {
//	        return v, ctx.Err()
//	    }
//	    runtime.Gosched()
//	}
//
// It is [iox.ErrWouldBlock], so iox-aware callers classify it as a
// control flow signal rather than a failure.
var ErrWouldBlock = iox.ErrWouldBlock

// IsWouldBlock reports whether err, or an error it wraps, is ErrWouldBlock.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err signals control flow (retry later)
// rather than a failure. ErrWouldBlock is semantic.
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err is nil, ErrWouldBlock or another iox
// control flow signal. Loops that poll TryPop use it to tell "try again"
// apart from a real error.
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
