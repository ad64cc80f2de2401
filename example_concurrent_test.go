// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !race

// This file contains examples with concurrent producer/consumer goroutines.
// These trigger false positives with Go's race detector because lock-free
// queue synchronization uses atomic sequences that the detector cannot see.
// The examples are correct; they're excluded from race testing.

package msq_test

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/msq"
)

// Example_workerPool demonstrates a worker pool draining one queue.
func Example_workerPool() {
	type Job struct {
		ID    int
		Input int
	}

	jobs := msq.NewUnbounded[Job]()
	results := make([]int, 6)
	var wg sync.WaitGroup

	// Three workers, two jobs each: Pop blocks until a job arrives
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 2 {
				job := jobs.Pop()
				results[job.ID] = job.Input * job.Input
			}
		}()
	}

	for i := range 6 {
		jobs.Push(Job{ID: i, Input: i + 1})
	}

	wg.Wait()
	fmt.Println(results)

	// Output:
	// [1 4 9 16 25 36]
}

// Example_asyncLogger demonstrates a background log writer fed by many
// goroutines. The writer stops on an empty sentinel record.
func Example_asyncLogger() {
	type record struct {
		level string
		msg   string
	}

	q := msq.NewUnbounded[record]()
	var lines []string
	done := make(chan struct{})

	// Writer
	go func() {
		defer close(done)
		for {
			r := q.Pop()
			if r.msg == "" {
				return
			}
			lines = append(lines, "["+r.level+"] "+r.msg)
		}
	}()

	// Loggers
	var wg sync.WaitGroup
	var written atomix.Int32
	for id := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 3 {
				q.Push(record{level: "INFO", msg: fmt.Sprintf("worker %d step %d", id, i)})
				written.Add(1)
			}
		}()
	}
	wg.Wait()
	q.Push(record{}) // Stop
	<-done

	// Lines from one worker keep their order
	fmt.Println(written.Load(), len(lines))
	var w0 []string
	for _, l := range lines {
		if strings.Contains(l, "worker 0") {
			w0 = append(w0, l)
		}
	}
	fmt.Println(slices.IsSorted(w0), len(w0))

	// Output:
	// 12 12
	// true 3
}

// Example_pipeline demonstrates chaining bounded stages.
func Example_pipeline() {
	// Pipeline: Generate → Double → Collect
	stage1to2 := msq.NewBounded[int](4)
	stage2to3 := msq.NewBounded[int](4)

	go func() {
		for i := 1; i <= 5; i++ {
			stage1to2.Push(i)
		}
	}()

	go func() {
		for range 5 {
			stage2to3.Push(stage1to2.Pop() * 2)
		}
	}()

	results := make([]int, 0, 5)
	for range 5 {
		results = append(results, stage2to3.Pop())
	}
	fmt.Println(results)

	// Output:
	// [2 4 6 8 10]
}
