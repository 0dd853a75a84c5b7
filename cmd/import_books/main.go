// Command import_books bulk-loads records from a JSON seed file into the
// book collection. Existing records are kept; imported records get fresh
// ids.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"bookshelf/library"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <seed-file.json>\n", os.Args[0])
		os.Exit(1)
	}
	seedPath := os.Args[1]

	cfg, err := library.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	manager, err := library.NewManager(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening data directory: %v\n", err)
		os.Exit(1)
	}
	defer manager.Close()

	data, err := os.ReadFile(seedPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading seed file: %v\n", err)
		os.Exit(1)
	}

	var seeds []library.Book
	if err := json.Unmarshal(data, &seeds); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing seed file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Importing %d books from %s...\n", len(seeds), seedPath)

	successCount := 0
	errorCount := 0

	for _, seed := range seeds {
		fmt.Printf("Importing: %s by %s... ", seed.Title, seed.Author)

		added, err := manager.AddBook(seed)
		if err != nil {
			fmt.Printf("ERROR - %v\n", err)
			errorCount++
			continue
		}

		fmt.Printf("SUCCESS (ID: %s)\n", added.ID)
		successCount++
	}

	fmt.Printf("\nImport complete!\n")
	fmt.Printf("Successfully imported: %d books\n", successCount)
	fmt.Printf("Errors: %d\n", errorCount)

	if successCount > 0 {
		fmt.Println("\nCollection contents:")
		books, err := manager.Books()
		if err != nil {
			fmt.Printf("Error retrieving books: %v\n", err)
			return
		}
		fmt.Printf("%-36s %-50s %-30s\n", "ID", "Title", "Author")
		fmt.Println(strings.Repeat("-", 118))
		for _, book := range books {
			fmt.Printf("%-36s %-50s %-30s\n", book.ID, truncateString(book.Title, 50), truncateString(book.Author, 30))
		}
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
