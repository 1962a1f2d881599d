package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	"simplerdb/pkg/client"
)

func main() {
	fmt.Println("Connecting to SimpleRDB...")
	cli, err := client.Dial("localhost:9090")
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer cli.Close()

	stmts := []string{
		"CREATE TABLE books (isbn, title, author)",
		"INSERT INTO books VALUES ('978-0', 'The Go Programming Language', 'Donovan, Kernighan')",
		"INSERT INTO books VALUES ('978-1', 'Designing Data-Intensive Applications', 'Kleppmann')",
		"SELECT title FROM books WHERE isbn = '978-1'",
	}
	for _, stmt := range stmts {
		fmt.Printf("> %s\n", stmt)
		start := time.Now()
		res, err := cli.Query(stmt)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		if res.Set == nil {
			fmt.Printf("%s (%v)\n", res.Message, time.Since(start))
			continue
		}
		fmt.Println(strings.Join(res.Set.Columns, " | "))
		for _, row := range res.Set.Rows {
			fmt.Println(strings.Join(row, " | "))
		}
		fmt.Printf("(%d rows, %v)\n", len(res.Set.Rows), time.Since(start))
	}
}
