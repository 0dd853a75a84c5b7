package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"bookshelf/library"
	"bookshelf/web"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openManager loads config from the environment and opens the data
// directory. Callers must Close the manager.
func openManager() (*library.Manager, library.Config, error) {
	cfg, err := library.LoadConfig()
	if err != nil {
		return nil, cfg, err
	}
	mgr, err := library.NewManager(cfg.DataDir)
	if err != nil {
		return nil, cfg, err
	}
	return mgr, cfg, nil
}

// readPassword securely reads a password with masking.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println()
	return strings.TrimSpace(string(bytePassword)), nil
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "bookshelf",
		Short:         "Personal book-collection tracker",
		Long:          "Track your book collection: a JSON book file on disk, summary statistics, and a web UI with charts.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newAddCommand())
	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newDeleteCommand())
	cmd.AddCommand(newStatsCommand())
	cmd.AddCommand(newUserCommand())

	return cmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, cfg, err := openManager()
			if err != nil {
				return err
			}
			defer mgr.Close()

			handler := web.NewHandler(mgr, library.NewLookup(cfg.LookupBaseURL))
			server := web.NewServer(cfg.Addr, handler.Routes())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- server.ListenAndServe() }()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				return server.Shutdown(context.Background())
			}
		},
	}
}

func newAddCommand() *cobra.Command {
	var (
		title  string
		author string
		isbn   string
		rating int
		status string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book to the collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := openManager()
			if err != nil {
				return err
			}
			defer mgr.Close()

			book := library.Book{
				Title:  title,
				Author: author,
				ISBN:   isbn,
				Status: library.Status(status),
			}
			if cmd.Flags().Changed("rating") {
				book.Rating = &rating
			}

			added, err := mgr.AddBook(book)
			if err != nil {
				return err
			}
			fmt.Printf("Added book %s: %s by %s\n", added.ID, added.Title, added.Author)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "book title (required)")
	cmd.Flags().StringVar(&author, "author", "", "book author (required)")
	cmd.Flags().StringVar(&isbn, "isbn", "", "ISBN")
	cmd.Flags().IntVar(&rating, "rating", 0, "rating 1-5")
	cmd.Flags().StringVar(&status, "status", string(library.StatusUnread), "Read, Unread or Reading")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("author")

	return cmd
}

func newListCommand() *cobra.Command {
	var (
		query  string
		status string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books, optionally filtered",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := openManager()
			if err != nil {
				return err
			}
			defer mgr.Close()

			filter := library.Status(status)
			if status != "" && !filter.Valid() {
				return fmt.Errorf("invalid status %q: must be Read, Unread or Reading", status)
			}

			books, err := mgr.SearchBooks(query, filter)
			if err != nil {
				return err
			}
			if len(books) == 0 {
				fmt.Println("No books found.")
				return nil
			}

			fmt.Printf("%-36s %-30s %-25s %-8s %-5s %s\n", "ID", "Title", "Author", "Status", "Score", "Added")
			fmt.Println(strings.Repeat("-", 115))
			for _, b := range books {
				fmt.Println(library.PrettyBook(b))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "substring match on title or author")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")

	return cmd
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <book-id>",
		Short: "Delete a book by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := openManager()
			if err != nil {
				return err
			}
			defer mgr.Close()

			if err := mgr.DeleteBook(args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted book %s (if it existed)\n", args[0])
			return nil
		},
	}
}

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print collection statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := openManager()
			if err != nil {
				return err
			}
			defer mgr.Close()

			books, err := mgr.Books()
			if err != nil {
				return err
			}

			fmt.Printf("Total books: %d\n\n", len(books))

			fmt.Println("By status:")
			counts := library.CountByStatus(books)
			for _, s := range library.Statuses() {
				fmt.Printf("  %-8s %d\n", s, counts[s])
			}

			fmt.Println("\nRatings:")
			hist := library.RatingHistogram(books)
			for r := 1; r <= 5; r++ {
				fmt.Printf("  %d stars  %s\n", r, strings.Repeat("#", hist[r]))
			}

			fmt.Println("\nMonthly additions:")
			for _, mc := range library.MonthlyAdditions(books) {
				fmt.Printf("  %s  %d\n", mc.Month, mc.Count)
			}
			return nil
		},
	}
}

func newUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts for the web UI",
	}
	cmd.AddCommand(newUserAddCommand())
	cmd.AddCommand(newUserResetPasswordCommand())
	return cmd
}

func newUserAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Register an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := openManager()
			if err != nil {
				return err
			}
			defer mgr.Close()

			name := args[0]
			password, err := readPassword(fmt.Sprintf("Enter password for %s: ", name))
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}

			id, err := mgr.AddUser(name, password)
			if err != nil {
				return err
			}
			fmt.Printf("Added user %q with ID %d\n", name, id)
			return nil
		},
	}
}

func newUserResetPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <user-id>",
		Short: "Reset an account password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := openManager()
			if err != nil {
				return err
			}
			defer mgr.Close()

			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id: %s", args[0])
			}

			user, err := mgr.GetUser(userID)
			if err != nil {
				return err
			}

			password, err := readPassword(fmt.Sprintf("Enter new password for %s (ID: %d): ", user.Name, userID))
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			if err := mgr.ResetPassword(userID, password); err != nil {
				return err
			}
			fmt.Printf("Password successfully reset for %s (ID: %d)\n", user.Name, userID)
			return nil
		},
	}
}
