// Command bstbench drives a concurrent insert/delete/lookup workload
// against pkg/bst.Tree and reports throughput, following the teacher's
// cmd/turdb convention of a tiny os.Args-driven main with no flag package.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"concurrentbst/pkg/affinity"
	"concurrentbst/pkg/bst"
)

func main() {
	goroutines := 8
	keyspace := 10000
	duration := 5 * time.Second

	if len(os.Args) > 1 {
		if n, err := strconv.Atoi(os.Args[1]); err == nil && n > 0 {
			goroutines = n
		}
	}
	if len(os.Args) > 2 {
		if n, err := strconv.Atoi(os.Args[2]); err == nil && n > 0 {
			keyspace = n
		}
	}
	if len(os.Args) > 3 {
		if secs, err := strconv.Atoi(os.Args[3]); err == nil && secs > 0 {
			duration = time.Duration(secs) * time.Second
		}
	}

	tree := bst.New[int, int64]()
	defer tree.Close()

	var ops int64
	stop := make(chan struct{})
	var wg sync.WaitGroup

	numCPU := runtime.NumCPU()
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if affinity.Available() {
				_ = affinity.Pin(id % numCPU)
			}
			rng := rand.New(rand.NewSource(int64(id) + 1))
			for {
				select {
				case <-stop:
					return
				default:
				}
				key := rng.Intn(keyspace)
				switch rng.Intn(3) {
				case 0:
					tree.Insert(key, int64(key))
				case 1:
					tree.Delete(key)
				default:
					tree.Lookup(key)
				}
				atomic.AddInt64(&ops, 1)
			}
		}(g)
	}

	time.Sleep(duration)
	close(stop)
	wg.Wait()

	fmt.Fprintf(os.Stdout,
		"goroutines=%d keyspace=%d duration=%s ops=%d ops/sec=%.0f live_keys=%d pending_reclamations=%d\n",
		goroutines, keyspace, duration, ops, float64(ops)/duration.Seconds(),
		tree.Len(), tree.PendingReclamations())
}
