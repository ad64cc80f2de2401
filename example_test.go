// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !race

// This file contains examples that publish payloads through atomix links.
// These trigger false positives with Go's race detector because atomix
// atomic operations appear as regular memory accesses to the detector.
// The examples are correct; they're excluded from race testing.

package msq_test

import (
	"fmt"

	"code.hybscloud.com/msq"
)

// ExampleNewUnbounded demonstrates basic FIFO use of the unbounded queue.
func ExampleNewUnbounded() {
	q := msq.NewUnbounded[int]()

	for i := 1; i <= 5; i++ {
		q.Push(i * 10)
	}

	for !q.IsEmpty() {
		fmt.Println(q.Pop())
	}

	// Output:
	// 10
	// 20
	// 30
	// 40
	// 50
}

// ExampleNewBounded demonstrates backpressure on the bounded variant.
func ExampleNewBounded() {
	q := msq.NewBounded[string](2)

	fmt.Println(q.TryPush("a"), q.TryPush("b"))
	if err := q.TryPush("c"); msq.IsWouldBlock(err) {
		fmt.Println("full at", q.Cap())
	}

	fmt.Println(q.Pop(), q.Pop())

	// Output:
	// <nil> <nil>
	// full at 2
	// a b
}

// ExampleBuild demonstrates the builder API.
func ExampleBuild() {
	// Unbounded, hazard-pointer reclamation, sleeping waits
	q := msq.Build[string](msq.New().HazardPointers().Wait(msq.BackoffWait()))
	q.Push("hello")
	q.Push("world")

	fmt.Println(q.Pop(), q.Pop())
	fmt.Printf("%T\n", q)

	// Output:
	// hello world
	// *msq.Unbounded[string]
}

// ExampleIsWouldBlock demonstrates the non-blocking pop.
func ExampleIsWouldBlock() {
	q := msq.NewUnbounded[int]()

	if _, err := q.TryPop(); msq.IsWouldBlock(err) {
		fmt.Println("Queue empty - no data available")
	}

	q.Push(7)
	v, err := q.TryPop()
	fmt.Println(v, err)

	// Output:
	// Queue empty - no data available
	// 7 <nil>
}

// ExampleUnbounded_Stats demonstrates reclamation accounting.
func ExampleUnbounded_Stats() {
	q := msq.NewUnbounded[int]()

	for round := range 3 {
		for i := range 10 {
			q.Push(round*10 + i)
		}
		for range 10 {
			q.Pop()
		}
		q.Quiesce()
	}

	st := q.Stats()
	fmt.Println("retired:", st.Retired)
	fmt.Println("reclaimed:", st.Reclaimed)
	fmt.Println("slot reuse:", st.Nodes < 31)

	// Output:
	// retired: 30
	// reclaimed: 30
	// slot reuse: true
}

// ExampleCustomWait demonstrates a caller supplied wait strategy.
func ExampleCustomWait() {
	attempts := 0
	q := msq.Build[int](msq.New().Wait(msq.CustomWait(func(attempt int) {
		attempts = attempt + 1
	})))

	_, err := q.TryPop()
	fmt.Println(msq.IsWouldBlock(err), attempts)

	q.Push(1)
	fmt.Println(q.Pop(), attempts)

	// Output:
	// true 0
	// 1 0
}
