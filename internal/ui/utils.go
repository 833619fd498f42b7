package ui

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Colors for consistent UI
const (
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorReset  = "\033[0m"
)

// PrintWarning displays a warning message with consistent formatting
func PrintWarning(message string) {
	fmt.Printf("%s\nWarning:%s\n", ColorYellow, ColorReset)
	fmt.Printf("%s%s%s\n", ColorYellow, message, ColorReset)
}

// PrintError displays an error message with consistent formatting
func PrintError(message string) {
	fmt.Printf("\n%sError: %s%s\n", ColorRed, message, ColorReset)
}

// PrintSuccess displays a success message with consistent formatting
func PrintSuccess(message string) {
	fmt.Printf("\n%s%s%s\n", ColorGreen, message, ColorReset)
}

// PrintInfo displays an info message with consistent formatting
func PrintInfo(message string) {
	fmt.Printf("%s%s%s", ColorBlue, message, ColorReset)
}

// ReadString reads a string from stdin with trimming
func ReadString(prompt string) string {
	reader := bufio.NewReader(os.Stdin)
	PrintInfo(prompt)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// ReadDate reads a date from stdin with validation
func ReadDate(prompt string) (time.Time, error) {
	input := ReadString(prompt)
	if input == "today" {
		return time.Now(), nil
	}
	date, err := time.Parse(time.DateOnly, input)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %s. Please use YYYY-MM-DD", input)
	}
	return date, nil
}

// ReadPositiveInt reads a positive integer from stdin
func ReadPositiveInt(prompt string) (int, error) {
	PrintInfo(prompt)
	var input string
	fmt.Scanln(&input)
	input = strings.TrimSpace(input)

	value, err := strconv.Atoi(input)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("invalid number: %s. Please enter a positive integer", input)
	}

	return value, nil
}

// ReadForestAndPlot reads forest and plot information
func ReadForestAndPlot() (string, string, error) {
	ListForests()
	forest := ReadString("Enter the forest name: ")
	ListPlots(forest)
	plot := ReadString("Enter the plot id: ")

	if forest == "" || plot == "" {
		return "", "", fmt.Errorf("forest name and plot id cannot be empty")
	}

	return forest, plot, nil
}

// ReadWindows reads an end date and the lengths in days of the primary and
// fallback search windows, both ending at that date. Windows are returned
// in the "start/end" form of a run file.
func ReadWindows() (string, string, error) {
	endDate, err := ReadDate("Enter the date to be analyzed (YYYY-MM-DD | today): ")
	if err != nil {
		return "", "", err
	}

	primaryDays, err := ReadPositiveInt("Enter number of days to search before that date: ")
	if err != nil {
		return "", "", err
	}

	fallbackDays, err := ReadPositiveInt("Enter number of days to search when nothing is found: ")
	if err != nil {
		return "", "", err
	}
	if fallbackDays < primaryDays {
		return "", "", fmt.Errorf("fallback window (%d days) must not be shorter than the primary one (%d days)", fallbackDays, primaryDays)
	}

	return window(endDate, primaryDays), window(endDate, fallbackDays), nil
}

func window(end time.Time, days int) string {
	return end.AddDate(0, 0, -days).Format(time.DateOnly) + "/" + end.Format(time.DateOnly)
}
