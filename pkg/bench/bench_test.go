// Package bench compares pkg/bst.Tree throughput against a sqlite3-backed
// single-table ordered store, the same comparison shape the teacher's
// turdb-vs-sqlite benchmarks used.
package bench

import (
	"database/sql"
	"math/rand"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"concurrentbst/pkg/bst"
)

func BenchmarkInsert_Tree(b *testing.B) {
	tree := bst.New[int, int64]()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tree.Insert(i, int64(i*10))
	}
}

func BenchmarkInsert_SQLite(b *testing.B) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		b.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec("CREATE TABLE bench (id INTEGER PRIMARY KEY, value INTEGER)"); err != nil {
		b.Fatalf("create table: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := db.Exec("INSERT INTO bench VALUES (?, ?)", i, i*10); err != nil {
			b.Fatalf("insert at %d: %v", i, err)
		}
	}
}

func BenchmarkLookup_Tree(b *testing.B) {
	const n = 100_000
	tree := bst.New[int, int64]()
	for i := 0; i < n; i++ {
		tree.Insert(i, int64(i))
	}
	rng := rand.New(rand.NewSource(1))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tree.Lookup(rng.Intn(n))
	}
}

func BenchmarkLookup_SQLite(b *testing.B) {
	const n = 100_000
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		b.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec("CREATE TABLE bench (id INTEGER PRIMARY KEY, value INTEGER)"); err != nil {
		b.Fatalf("create table: %v", err)
	}
	for i := 0; i < n; i++ {
		if _, err := db.Exec("INSERT INTO bench VALUES (?, ?)", i, i); err != nil {
			b.Fatalf("seed insert at %d: %v", i, err)
		}
	}
	rng := rand.New(rand.NewSource(1))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var value int
		row := db.QueryRow("SELECT value FROM bench WHERE id = ?", rng.Intn(n))
		if err := row.Scan(&value); err != nil {
			b.Fatalf("lookup: %v", err)
		}
	}
}

func BenchmarkConcurrentInsert_Tree(b *testing.B) {
	tree := bst.New[int, int64]()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			tree.Insert(i, int64(i))
			i++
		}
	})
}
