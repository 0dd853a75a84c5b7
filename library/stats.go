package library

import "sort"

// Summary computations for the dashboard and charts. Every function here
// is a pure function of its input slice; no I/O, no hidden state.

// MonthCount pairs a "YYYY-MM" month with the number of books added then.
type MonthCount struct {
	Month string
	Count int
}

// CountByStatus counts records per status. Every enum value appears in
// the result, zero counts included, so charts can render all slices.
func CountByStatus(books []Book) map[Status]int {
	counts := make(map[Status]int, 3)
	for _, s := range Statuses() {
		counts[s] = 0
	}
	for _, b := range books {
		counts[b.Status]++
	}
	return counts
}

// RatingHistogram counts records per rating value 1..5. Unrated records
// are excluded. All five keys are always present.
func RatingHistogram(books []Book) map[int]int {
	hist := make(map[int]int, 5)
	for r := 1; r <= 5; r++ {
		hist[r] = 0
	}
	for _, b := range books {
		if b.Rating != nil {
			hist[*b.Rating]++
		}
	}
	return hist
}

// MonthlyAdditions groups records by the calendar month they were added,
// ascending. Only months with at least one addition appear.
func MonthlyAdditions(books []Book) []MonthCount {
	byMonth := make(map[string]int)
	for _, b := range books {
		byMonth[b.AddedAt.YearMonth()]++
	}

	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)

	out := make([]MonthCount, 0, len(months))
	for _, m := range months {
		out = append(out, MonthCount{Month: m, Count: byMonth[m]})
	}
	return out
}

// ReadCount counts records with status Read.
func ReadCount(books []Book) int {
	count := 0
	for _, b := range books {
		if b.Status == StatusRead {
			count++
		}
	}
	return count
}

// RecentAdditions returns the n newest records by added-at date. Ties
// keep insertion order. The input slice is not modified.
func RecentAdditions(books []Book, n int) []Book {
	sorted := make([]Book, len(books))
	copy(sorted, books)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AddedAt.After(sorted[j].AddedAt.Time)
	})
	if n < 0 {
		n = 0
	}
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}
