package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"
)

// readPin prompts for a PIN without echoing it. When stdin is not a
// terminal (tests, pipes) it falls back to a plain line read.
func readPin(prompt string) (string, error) {
	fmt.Print(prompt)

	if term.IsTerminal(int(syscall.Stdin)) {
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read PIN: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	return readLine()
}

// readPassphrase prompts for a backup passphrase without echoing it.
func readPassphrase(prompt string) (string, error) {
	fmt.Print(prompt)

	if term.IsTerminal(int(syscall.Stdin)) {
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read passphrase: %w", err)
		}
		return string(raw), nil
	}

	return readLine()
}

func readLine() (string, error) {
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// confirm asks a yes/no question, defaulting to no.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	line, err := readLine()
	if err != nil {
		return false
	}
	answer := strings.ToLower(line)
	return answer == "y" || answer == "yes"
}

func formatError(err error) string {
	if err == nil {
		return ""
	}

	var messages []string
	for err != nil {
		messages = append(messages, err.Error())
		err = errors.Unwrap(err)
	}

	if len(messages) > 1 {
		uniqueMessages := make([]string, 0, len(messages))
		seen := make(map[string]bool)

		for _, msg := range messages {
			if !seen[msg] {
				uniqueMessages = append(uniqueMessages, msg)
				seen[msg] = true
			}
		}

		if len(uniqueMessages) > 1 {
			return fmt.Sprintf("Error: %s (caused by: %s)",
				uniqueMessages[0],
				strings.Join(uniqueMessages[1:], " -> "))
		}
	}

	message := messages[0]
	if len(message) > 0 {
		first := string(message[0])
		if first != strings.ToUpper(first) {
			message = strings.ToUpper(first) + message[1:]
		}
	}

	return fmt.Sprintf("Error: %s", message)
}

// truncate shortens s to max runes for table display.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
